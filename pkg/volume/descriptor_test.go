package volume

import (
	"compress/gzip"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aghaeifar/recotwix/internal/models"
)

func transverseSpec() models.GeometrySpec {
	return models.GeometrySpec{
		Name:   "test",
		Normal: models.Vector{Tra: 1},
		FOV:    models.FOV{Readout: 200, Phase: 200, Slice: 5},
	}
}

func TestNewDescriptorDerivesGrid(t *testing.T) {
	spec := transverseSpec()
	spec.FOV = models.FOV{Readout: 200.7, Phase: 150.2, Slice: 5.5}

	d, err := NewDescriptor(spec)
	if err != nil {
		t.Fatalf("NewDescriptor failed: %v", err)
	}

	// resolution defaults to floor(FOV) per axis, thickness to slice
	// extent over partitions
	if got := d.Resolution(); got != (models.Resolution{X: 200, Y: 150, Z: 5}) {
		t.Errorf("Resolution = %+v, want (200, 150, 5)", got)
	}
	if got := d.Thickness(); math.Abs(got-1.1) > 1e-12 {
		t.Errorf("Thickness = %v, want 1.1", got)
	}
}

func TestNewDescriptorSingleSliceWorkaround(t *testing.T) {
	spec := transverseSpec()
	spec.Resolution = &models.Resolution{X: 64, Y: 64, Z: 1}

	d, err := NewDescriptor(spec)
	if err != nil {
		t.Fatalf("NewDescriptor failed: %v", err)
	}

	if got := d.Resolution().Z; got != 3 {
		t.Errorf("Resolution.Z = %d, want 3 after the single-partition correction", got)
	}
	// derived thickness was 5/1; it must shrink by the same factor the
	// partition count grew, preserving the slab extent
	if got := d.Thickness(); math.Abs(got-5.0/3) > 1e-12 {
		t.Errorf("Thickness = %v, want 5/3", got)
	}

	// an explicit thickness divides too
	spec.Thickness = 2
	d, err = NewDescriptor(spec)
	if err != nil {
		t.Fatalf("NewDescriptor failed: %v", err)
	}
	if got := d.Thickness(); math.Abs(got-2.0/3) > 1e-12 {
		t.Errorf("explicit Thickness = %v, want 2/3", got)
	}
}

func TestDescriptorShapeAndFOVSwap(t *testing.T) {
	spec := transverseSpec()
	spec.FOV = models.FOV{Readout: 256, Phase: 192, Slice: 120}
	spec.Resolution = &models.Resolution{X: 128, Y: 96, Z: 40}

	d, err := NewDescriptor(spec)
	if err != nil {
		t.Fatalf("NewDescriptor failed: %v", err)
	}

	// the in-plane axes are swapped to match the affine's convention
	if got := d.Shape(); got != [3]int{96, 128, 40} {
		t.Errorf("Shape = %v, want (96, 128, 40)", got)
	}
	if got := d.FOV(); got != [3]float64{192, 256, 120} {
		t.Errorf("FOV = %v, want (192, 256, 120)", got)
	}
}

func TestNewDescriptorRejectsBadGeometry(t *testing.T) {
	spec := transverseSpec()
	spec.FOV.Phase = 0
	if _, err := NewDescriptor(spec); err == nil {
		t.Errorf("expected an error for a zero field of view")
	} else if !strings.Contains(err.Error(), "field of view") {
		t.Errorf("error %q does not mention the field of view", err)
	}

	spec = transverseSpec()
	spec.Resolution = &models.Resolution{X: 64, Y: -1, Z: 4}
	if _, err := NewDescriptor(spec); err == nil {
		t.Errorf("expected an error for a negative resolution")
	}
}

func TestDescriptorData(t *testing.T) {
	d, err := NewDescriptor(transverseSpec())
	if err != nil {
		t.Fatalf("NewDescriptor failed: %v", err)
	}

	data := d.Data(0.5)
	shape := d.Shape()
	if len(data) != shape[0]*shape[1]*shape[2] {
		t.Fatalf("Data length = %d, want %d", len(data), shape[0]*shape[1]*shape[2])
	}
	for i, v := range data {
		if v != 0.5 {
			t.Fatalf("Data[%d] = %v, want the fill value 0.5", i, v)
		}
	}
}

func TestDescriptorWriteNifti(t *testing.T) {
	d, err := NewDescriptor(transverseSpec())
	if err != nil {
		t.Fatalf("NewDescriptor failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "vol.nii.gz")
	if err := d.WriteNifti(path); err != nil {
		t.Fatalf("WriteNifti failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("output is not gzip compressed: %v", err)
	}
	header := make([]byte, 4)
	if _, err := io.ReadFull(gz, header); err != nil {
		t.Fatalf("reading decompressed header: %v", err)
	}
	// sizeof_hdr == 348, little endian
	if header[0] != 92 || header[1] != 1 || header[2] != 0 || header[3] != 0 {
		t.Errorf("decompressed header starts with %v, want the nifti size marker 348", header)
	}
}
