package protocol

import "testing"

func TestLookupDefaults(t *testing.T) {
	prot := Protocol{
		"sKSpace": Protocol{"lBaseResolution": int64(64), "dFraction": 0.75},
		"asList":  []any{Protocol{"tName": "one"}, int64(2)},
	}

	if got := prot.Float(-1, "sKSpace", "lBaseResolution"); got != 64 {
		t.Errorf("Float = %v, want 64", got)
	}
	if got := prot.Int(-1, "sKSpace", "dFraction"); got != 0 {
		t.Errorf("Int truncating float = %v, want 0", got)
	}
	if got := prot.Float(-1, "sKSpace", "missing"); got != -1 {
		t.Errorf("Float on missing key = %v, want default -1", got)
	}
	if got := prot.Float(-1, "missing", "deeper", "path"); got != -1 {
		t.Errorf("Float on missing path = %v, want default -1", got)
	}
	if got := prot.String("fallback", "sKSpace", "lBaseResolution"); got != "fallback" {
		t.Errorf("String on numeric leaf = %q, want fallback", got)
	}
	if got := prot.MapAt(1, "asList"); got != nil {
		t.Errorf("MapAt on scalar element = %v, want nil", got)
	}
	if got := prot.MapAt(5, "asList").String("none", "tName"); got != "none" {
		t.Errorf("chained lookup past the end = %q, want none", got)
	}
}

func TestLookupNilSafety(t *testing.T) {
	var prot Protocol

	if got := prot.Int(7, "anything"); got != 7 {
		t.Errorf("Int on nil protocol = %v, want 7", got)
	}
	if got := prot.Map("a", "b"); got != nil {
		t.Errorf("Map on nil protocol = %v, want nil", got)
	}
	// plain map[string]any values behave like nested Protocols
	mixed := Protocol{"outer": map[string]any{"inner": int64(3)}}
	if got := mixed.Int(0, "outer", "inner"); got != 3 {
		t.Errorf("Int through map[string]any = %v, want 3", got)
	}
}
