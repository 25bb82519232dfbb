package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ascconvBegin = "### ASCCONV BEGIN"
	ascconvEnd   = "### ASCCONV END"
)

// ParseHeaderText parses the ASCCONV section of a raw protocol header into a
// Protocol tree. Lines have the form
//
//	sSliceArray.asSlice[0].sPosition.dTra = -24.0
//
// with dotted paths, bracketed array indices, and scalar values that are hex
// or decimal integers, floats, or double-quoted strings. If no ASCCONV
// markers are present the whole text is treated as the section, so plain
// MeasYaps dumps parse too. Unparseable lines are an error; an input with no
// assignments at all is an error.
func ParseHeaderText(text string) (Protocol, error) {
	section := text
	if i := strings.Index(text, ascconvBegin); i >= 0 {
		section = section[i:]
		if j := strings.Index(section, "\n"); j >= 0 {
			section = section[j+1:]
		}
		if j := strings.Index(section, ascconvEnd); j >= 0 {
			section = section[:j]
		}
	}

	root := Protocol{}
	assignments := 0
	for lineNo, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("protocol line %d: no assignment in %q", lineNo+1, line)
		}

		segs, err := parsePath(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("protocol line %d: %w", lineNo+1, err)
		}
		val, err := parseScalar(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("protocol line %d: %w", lineNo+1, err)
		}
		if err := assign(root, segs, val); err != nil {
			return nil, fmt.Errorf("protocol line %d: %w", lineNo+1, err)
		}
		assignments++
	}
	if assignments == 0 {
		return nil, fmt.Errorf("no protocol assignments found")
	}
	return root, nil
}

// pathSeg is one dotted path element, optionally carrying an array index.
type pathSeg struct {
	name    string
	index   int
	indexed bool
}

func parsePath(key string) ([]pathSeg, error) {
	if key == "" {
		return nil, fmt.Errorf("empty parameter path")
	}
	var segs []pathSeg
	for _, part := range strings.Split(key, ".") {
		seg := pathSeg{name: part}
		if open := strings.IndexByte(part, '['); open >= 0 {
			end := strings.IndexByte(part, ']')
			if end < open {
				return nil, fmt.Errorf("malformed index in %q", part)
			}
			idx, err := strconv.Atoi(part[open+1 : end])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("malformed index in %q", part)
			}
			seg.name = part[:open]
			seg.index = idx
			seg.indexed = true
		}
		if seg.name == "" {
			return nil, fmt.Errorf("empty path element in %q", key)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseScalar(raw string) (any, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty value")
	}
	if strings.HasPrefix(raw, `"`) {
		if len(raw) < 2 || !strings.HasSuffix(raw, `"`) {
			return nil, fmt.Errorf("unterminated string %q", raw)
		}
		return strings.Trim(raw, `"`), nil
	}
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		n, err := strconv.ParseInt(raw[2:], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed hex value %q", raw)
		}
		return n, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, nil
	}
	// bare enum-like tokens occur in some header dialects
	return raw, nil
}

func assign(root Protocol, segs []pathSeg, val any) error {
	cur := root
	for i, seg := range segs {
		last := i == len(segs)-1

		if !seg.indexed {
			if last {
				cur[seg.name] = val
				return nil
			}
			next, ok := cur[seg.name].(Protocol)
			if !ok {
				if cur[seg.name] != nil {
					return fmt.Errorf("parameter %s redefined as a group", seg.name)
				}
				next = Protocol{}
				cur[seg.name] = next
			}
			cur = next
			continue
		}

		arr, ok := cur[seg.name].([]any)
		if !ok && cur[seg.name] != nil {
			return fmt.Errorf("parameter %s redefined as an array", seg.name)
		}
		for len(arr) <= seg.index {
			arr = append(arr, nil)
		}
		cur[seg.name] = arr

		if last {
			arr[seg.index] = val
			return nil
		}
		next, ok := arr[seg.index].(Protocol)
		if !ok {
			if arr[seg.index] != nil {
				return fmt.Errorf("parameter %s[%d] redefined as a group", seg.name, seg.index)
			}
			next = Protocol{}
			arr[seg.index] = next
		}
		cur = next
	}
	return nil
}
