// Package volume builds imaging-volume descriptors and collections from a
// parsed scanner protocol and exposes their NIfTI geometry.
package volume

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/aghaeifar/recotwix/internal/models"
	"github.com/aghaeifar/recotwix/pkg/nifti"
	"github.com/aghaeifar/recotwix/pkg/transform"
)

// Descriptor is one imaging volume: the normalized geometry fields plus the
// rigid transformation and NIfTI affine derived from them. Both matrices are
// computed eagerly at construction; a Descriptor is immutable afterwards.
type Descriptor struct {
	name      string
	normal    models.Vector
	rot       float64
	position  models.Vector
	fov       models.FOV
	res       models.Resolution
	thickness float64

	transformation *mat.Dense
	affine         *mat.Dense
}

// NewDescriptor builds a Descriptor from a geometry spec, deriving the grid
// and thickness when the spec leaves them out: resolution defaults to
// floor(FOV) per axis and thickness to FOV.Slice/Resolution.Z.
//
// A grid with a single partition is forced to three partitions of a third of
// the thickness. This is a deliberate numerical workaround, not a general
// rule: downstream resampling cannot handle a one-voxel slab, and three thin
// slices cover the same extent.
func NewDescriptor(spec models.GeometrySpec) (*Descriptor, error) {
	name := spec.Name
	if name == "" {
		name = "volume"
	}
	if spec.FOV.Readout <= 0 || spec.FOV.Phase <= 0 || spec.FOV.Slice <= 0 {
		return nil, fmt.Errorf("%s: field of view must be positive, got (%g, %g, %g)",
			name, spec.FOV.Readout, spec.FOV.Phase, spec.FOV.Slice)
	}

	res := models.Resolution{
		X: int(spec.FOV.Readout),
		Y: int(spec.FOV.Phase),
		Z: int(spec.FOV.Slice),
	}
	if spec.Resolution != nil {
		res = *spec.Resolution
	}
	if res.X <= 0 || res.Y <= 0 || res.Z <= 0 {
		return nil, fmt.Errorf("%s: resolution must be positive, got (%d, %d, %d)",
			name, res.X, res.Y, res.Z)
	}

	thickness := spec.Thickness
	if thickness == 0 {
		thickness = spec.FOV.Slice / float64(res.Z)
	}
	if res.Z == 1 {
		res.Z = 3
		thickness /= 3
	}

	dcm := transform.NormalToDCM(spec.Normal.Sag, spec.Normal.Cor, spec.Normal.Tra, spec.InPlaneRot)
	tf := transform.RigidTransform(dcm, spec.Position)

	return &Descriptor{
		name:           name,
		normal:         spec.Normal,
		rot:            spec.InPlaneRot,
		position:       spec.Position,
		fov:            spec.FOV,
		res:            res,
		thickness:      thickness,
		transformation: tf,
		affine:         transform.NiftiAffine(tf, spec.FOV, res, thickness),
	}, nil
}

// Name returns the descriptor's label.
func (d *Descriptor) Name() string { return d.name }

// Normal returns the slice-normal direction.
func (d *Descriptor) Normal() models.Vector { return d.normal }

// InPlaneRot returns the in-plane rotation in radians.
func (d *Descriptor) InPlaneRot() float64 { return d.rot }

// Position returns the volume center in mm.
func (d *Descriptor) Position() models.Vector { return d.position }

// Resolution returns the voxel grid after derivation and the single-slice
// correction.
func (d *Descriptor) Resolution() models.Resolution { return d.res }

// Thickness returns the slice thickness in mm.
func (d *Descriptor) Thickness() float64 { return d.thickness }

// Transformation returns the 4x4 rigid transform (rotation + translation)
// in scanner space. Callers must not modify it.
func (d *Descriptor) Transformation() *mat.Dense { return d.transformation }

// Affine returns the 4x4 voxel-index to physical-coordinate matrix in the
// NIfTI convention. Callers must not modify it.
func (d *Descriptor) Affine() *mat.Dense { return d.affine }

// Shape returns the voxel array dimensions matching the affine's axis
// convention: the in-plane axes are swapped relative to the grid, so the
// first array axis runs along phase encoding.
func (d *Descriptor) Shape() [3]int {
	return [3]int{d.res.Y, d.res.X, d.res.Z}
}

// FOV returns the field of view in mm in the same axis order as Shape.
func (d *Descriptor) FOV() [3]float64 {
	return [3]float64{d.fov.Phase, d.fov.Readout, d.fov.Slice}
}

// Data synthesizes a uniform filler array of Shape's size, for cases where
// only the geometry matters downstream (e.g. visualizing the coverage of a
// planned volume).
func (d *Descriptor) Data(fill float32) []float32 {
	shape := d.Shape()
	data := make([]float32, shape[0]*shape[1]*shape[2])
	for i := range data {
		data[i] = fill
	}
	return data
}

// WriteNifti saves the volume geometry as a NIfTI file with uniform voxel
// content, so the planned volume can be overlaid on reference images in a
// viewer. The .nii.gz suffix selects gzip compression.
func (d *Descriptor) WriteNifti(path string) error {
	shape := d.Shape()
	voxels := make([]uint8, shape[0]*shape[1]*shape[2])
	for i := range voxels {
		voxels[i] = 1
	}
	img := nifti.Image{
		Shape:  shape,
		Affine: d.affine,
		Uint8:  voxels,
	}
	if err := img.Write(path); err != nil {
		return fmt.Errorf("writing %s volume: %w", d.name, err)
	}
	return nil
}
