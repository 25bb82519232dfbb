package volume

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aghaeifar/recotwix/pkg/protocol"
)

// testTree builds a minimal configuration tree with two slices, no pTx
// section and one adjustment volume.
func testTree() protocol.Protocol {
	slice := func(posTra float64) protocol.Protocol {
		return protocol.Protocol{
			"sNormal":     protocol.Protocol{"dTra": 1.0},
			"sPosition":   protocol.Protocol{"dTra": posTra},
			"dReadoutFOV": 256.0,
			"dPhaseFOV":   192.0,
			"dThickness":  120.0,
		}
	}
	return protocol.Protocol{
		"ulVersion": int64(0x14b44b6),
		"sKSpace": protocol.Protocol{
			"lBaseResolution":     int64(128),
			"lPhaseEncodingLines": int64(96),
			"lPartitions":         int64(40),
			"ucDimension":         int64(4),
		},
		"sSliceArray": protocol.Protocol{
			"asSlice": []any{slice(-20), slice(20)},
		},
		"sAdjData": protocol.Protocol{
			"sAdjVolume": protocol.Protocol{
				"sNormal":     protocol.Protocol{"dTra": 1.0},
				"sPosition":   protocol.Protocol{"dTra": -20.0},
				"dReadoutFOV": 200.0,
				"dPhaseFOV":   200.0,
				"dThickness":  5.0,
			},
		},
	}
}

func TestNewRegistryPrecedence(t *testing.T) {
	tree := testTree()

	for _, c := range []struct {
		name  string
		param any
	}{
		{"full header", protocol.Protocol{"hdr": protocol.Protocol{"MeasYaps": tree}}},
		{"MeasYaps wrapper", protocol.Protocol{"MeasYaps": tree}},
		{"bare tree", tree},
		{"plain map", map[string]any{"MeasYaps": tree}},
	} {
		r, err := NewRegistry(c.param)
		if err != nil {
			t.Errorf("%s: NewRegistry failed: %v", c.name, err)
			continue
		}
		if r.NumVolumes() != 3 {
			t.Errorf("%s: NumVolumes = %d, want 3", c.name, r.NumVolumes())
		}
	}
}

func TestNewRegistryInvalidInput(t *testing.T) {
	for _, c := range []struct {
		name  string
		param any
	}{
		{"unrecognized mapping", protocol.Protocol{"foo": int64(1)}},
		{"wrong type", 42},
		{"nil", nil},
	} {
		if _, err := NewRegistry(c.param); err == nil {
			t.Errorf("%s: expected an invalid-input error", c.name)
		}
	}
}

func TestRegistryNamesSkipEmptyCollections(t *testing.T) {
	r, err := NewRegistry(testTree())
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	// no pTx section in the tree: ptx must not be reported
	names := r.Names()
	if len(names) != 2 || names[0] != TagSlice || names[1] != TagAdjustment {
		t.Errorf("Names = %v, want [slc adj]", names)
	}

	// the empty collection is still retrievable
	ptx, err := r.Get(TagPTx)
	if err != nil {
		t.Fatalf("Get(ptx) failed: %v", err)
	}
	if ptx.Len() != 0 {
		t.Errorf("ptx collection has %d volumes, want 0", ptx.Len())
	}
}

func TestRegistryMissingSliceArray(t *testing.T) {
	tree := testTree()
	delete(tree, "sSliceArray")

	r, err := NewRegistry(tree)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	slc, err := r.Get(TagSlice)
	if err != nil {
		t.Fatalf("Get(slc) failed: %v", err)
	}
	if slc.Len() != 0 {
		t.Errorf("slc collection has %d volumes, want 0", slc.Len())
	}
	for _, name := range r.Names() {
		if name == TagSlice {
			t.Errorf("Names = %v includes the empty slc collection", r.Names())
		}
	}
}

func TestRegistryGetUnknownName(t *testing.T) {
	r, err := NewRegistry(testTree())
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	_, err = r.Get("unknown")
	if err == nil {
		t.Fatalf("expected a lookup error")
	}
	for _, tag := range []string{TagSlice, TagPTx, TagAdjustment} {
		if !strings.Contains(err.Error(), tag) {
			t.Errorf("error %q does not name valid tag %s", err, tag)
		}
	}
}

func TestCollectionIndexOutOfRange(t *testing.T) {
	r, err := NewRegistry(testTree())
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	slc, err := r.Get(TagSlice)
	if err != nil {
		t.Fatalf("Get(slc) failed: %v", err)
	}

	if _, err := slc.At(1); err != nil {
		t.Errorf("At(1) on a 2-volume collection failed: %v", err)
	}
	_, err = slc.At(99)
	if err == nil {
		t.Fatalf("expected a range error")
	}
	if !strings.Contains(err.Error(), "slice") ||
		!strings.Contains(err.Error(), "2") ||
		!strings.Contains(err.Error(), "99") {
		t.Errorf("range error %q must name the collection, its size and the index", err)
	}
}

func TestSliceCollectionSharesKSpaceResolution(t *testing.T) {
	r, err := NewRegistry(testTree())
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	slc, _ := r.Get(TagSlice)

	for _, d := range slc.All() {
		// 3D acquisition: partitions are valid, every slice shares the
		// k-space grid; shape swaps the in-plane axes
		if got := d.Shape(); got != [3]int{96, 128, 40} {
			t.Errorf("%s Shape = %v, want (96, 128, 40)", d.Name(), got)
		}
	}
}

func TestSliceCollection2DIgnoresPartitions(t *testing.T) {
	tree := testTree()
	tree.Map("sKSpace")["ucDimension"] = int64(2)

	r, err := NewRegistry(tree)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	slc, _ := r.Get(TagSlice)
	d, err := slc.At(0)
	if err != nil {
		t.Fatalf("At(0) failed: %v", err)
	}

	// 2D scans ignore lPartitions; the single partition then triggers the
	// three-partition workaround
	if got := d.Resolution().Z; got != 3 {
		t.Errorf("Resolution.Z = %d, want 3", got)
	}
	if got := d.Thickness(); math.Abs(got-40) > 1e-12 {
		t.Errorf("Thickness = %v, want 120/3", got)
	}
}

func TestAdjustmentVolumeEndToEnd(t *testing.T) {
	// the adjustment volume is a pure transverse slab: 200x200 mm in plane,
	// 5 mm thick, centered 20 mm below the isocenter. Its grid derives from
	// the field of view, so voxels are isotropic 1 mm in plane.
	r, err := NewRegistry(testTree())
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	adj, _ := r.Get(TagAdjustment)
	d, err := adj.At(0)
	if err != nil {
		t.Fatalf("At(0) failed: %v", err)
	}

	a := d.Affine()
	want := [4][4]float64{
		{0, 1, 0, -99.5},
		{1, 0, 0, -99.5},
		{0, 0, 1, -22},
		{0, 0, 0, 1},
	}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			if math.Abs(a.At(row, col)-want[row][col]) > 1e-9 {
				t.Errorf("affine(%d,%d) = %v, want %v", row, col, a.At(row, col), want[row][col])
			}
		}
	}

	tf := d.Transformation()
	if tf.At(2, 3) != -20 {
		t.Errorf("transformation keeps the volume center: got %v, want -20", tf.At(2, 3))
	}
}

func TestNewRegistryFromFile(t *testing.T) {
	text := `### ASCCONV BEGIN ###
ulVersion                             = 0x1
sKSpace.lBaseResolution               = 64
sKSpace.lPhaseEncodingLines           = 64
sKSpace.ucDimension                   = 2
sSliceArray.asSlice[0].dReadoutFOV    = 220.0
sSliceArray.asSlice[0].dPhaseFOV      = 220.0
sSliceArray.asSlice[0].dThickness     = 4.0
sSliceArray.asSlice[0].sNormal.dCor   = 1.0
### ASCCONV END ###
`
	path := filepath.Join(t.TempDir(), "protocol.txt")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	r, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry from file failed: %v", err)
	}
	if r.NumVolumes() != 1 {
		t.Errorf("NumVolumes = %d, want 1", r.NumVolumes())
	}
	if names := r.Names(); len(names) != 1 || names[0] != TagSlice {
		t.Errorf("Names = %v, want [slc]", names)
	}

	if _, err := NewRegistry(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}
