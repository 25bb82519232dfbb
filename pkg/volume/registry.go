package volume

import (
	"fmt"
	"os"

	"github.com/aghaeifar/recotwix/pkg/protocol"
)

// Collection tags accepted by Registry.Get, in the fixed order Names
// reports them.
const (
	TagSlice      = "slc"
	TagPTx        = "ptx"
	TagAdjustment = "adj"
)

var tagOrder = [...]string{TagSlice, TagPTx, TagAdjustment}

// Registry aggregates the slice, parallel-transmit and adjustment volume
// collections of one protocol. It is fully constructed in one pass and
// immutable afterwards; independent registries share no state, so
// processing many protocols in parallel is plain fan-out.
type Registry struct {
	prot        protocol.Protocol
	collections map[string]*Collection
	numVolumes  int
}

// NewRegistry builds all three collections from the given parameter, which
// may be, in precedence order:
//
//   - a parsed full header (protocol.Protocol or map[string]any) holding the
//     configuration tree under hdr → MeasYaps,
//   - a mapping holding it under MeasYaps,
//   - the configuration tree itself, recognized by its ulVersion key,
//   - a path to a raw header text file, which is read and parsed.
//
// Anything else is an invalid-input error and no registry is returned. Each
// collection tolerates its own section being absent.
func NewRegistry(param any) (*Registry, error) {
	prot, err := resolveProtocol(param)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		prot:        prot,
		collections: make(map[string]*Collection, len(tagOrder)),
	}
	sections := []struct {
		tag  string
		name string
		load sectionLoader
	}{
		{TagSlice, "slice", sliceSection},
		{TagPTx, "pTx", ptxSection},
		{TagAdjustment, "adjustment", adjSection},
	}
	for _, build := range sections {
		c, err := newCollection(build.name, prot, build.load)
		if err != nil {
			return nil, err
		}
		r.collections[build.tag] = c
		r.numVolumes += c.Len()
	}
	return r, nil
}

func resolveProtocol(param any) (protocol.Protocol, error) {
	switch v := param.(type) {
	case protocol.Protocol:
		return resolveTree(v)
	case map[string]any:
		return resolveTree(protocol.Protocol(v))
	case string:
		text, err := os.ReadFile(v)
		if err != nil {
			return nil, fmt.Errorf("reading protocol file: %w", err)
		}
		prot, err := protocol.ParseHeaderText(string(text))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", v, err)
		}
		return prot, nil
	case nil:
		return nil, fmt.Errorf("no protocol given")
	default:
		return nil, fmt.Errorf("unknown protocol parameter type %T", param)
	}
}

func resolveTree(p protocol.Protocol) (protocol.Protocol, error) {
	switch {
	case p.Map("hdr", "MeasYaps") != nil:
		return p.Map("hdr", "MeasYaps"), nil
	case p.Map("MeasYaps") != nil:
		return p.Map("MeasYaps"), nil
	case p.Has("ulVersion"):
		return p, nil
	default:
		return nil, fmt.Errorf("unrecognized protocol structure: expected hdr, MeasYaps or ulVersion")
	}
}

// Protocol returns the configuration tree the registry was built from.
func (r *Registry) Protocol() protocol.Protocol { return r.prot }

// Names returns the tags of the non-empty collections, in the fixed
// slc, ptx, adj order.
func (r *Registry) Names() []string {
	var names []string
	for _, tag := range tagOrder {
		if r.collections[tag].Len() > 0 {
			names = append(names, tag)
		}
	}
	return names
}

// Get returns the collection for one of the recognized tags (slc, ptx,
// adj), empty or not.
func (r *Registry) Get(tag string) (*Collection, error) {
	c, ok := r.collections[tag]
	if !ok {
		return nil, fmt.Errorf("unknown volume name %q: valid names are %s, %s, %s",
			tag, TagSlice, TagPTx, TagAdjustment)
	}
	return c, nil
}

// NumVolumes returns the total volume count across all collections.
func (r *Registry) NumVolumes() int { return r.numVolumes }
