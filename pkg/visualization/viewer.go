// Package visualization renders the coverage of planned imaging volumes as
// 2D slice images. Volumes are rasterized into a common scanner-space grid
// by testing each grid voxel against the inverse affine of every volume;
// overlapping volumes accumulate, so intersections show up brighter.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/aghaeifar/recotwix/internal/models"
	"github.com/aghaeifar/recotwix/pkg/volume"
)

// Rasterize marks every grid voxel whose physical center falls inside at
// least one of the given volumes. The grid spans the joint bounding box of
// all volume corners with gridSize voxels along the largest extent, and each
// voxel counts how many volumes contain it.
func Rasterize(descriptors []*volume.Descriptor, gridSize int) (*models.Volume, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("no volumes to rasterize")
	}
	if gridSize < 2 {
		return nil, fmt.Errorf("grid size must be at least 2, got %d", gridSize)
	}

	lo := models.Vector{Sag: math.Inf(1), Cor: math.Inf(1), Tra: math.Inf(1)}
	hi := models.Vector{Sag: math.Inf(-1), Cor: math.Inf(-1), Tra: math.Inf(-1)}
	inverses := make([]*mat.Dense, len(descriptors))
	shapes := make([][3]int, len(descriptors))

	for i, d := range descriptors {
		var inv mat.Dense
		if err := inv.Inverse(d.Affine()); err != nil {
			return nil, fmt.Errorf("inverting affine of %s: %w", d.Name(), err)
		}
		inverses[i] = &inv
		shapes[i] = d.Shape()

		for _, corner := range corners(d) {
			lo.Sag = math.Min(lo.Sag, corner.Sag)
			lo.Cor = math.Min(lo.Cor, corner.Cor)
			lo.Tra = math.Min(lo.Tra, corner.Tra)
			hi.Sag = math.Max(hi.Sag, corner.Sag)
			hi.Cor = math.Max(hi.Cor, corner.Cor)
			hi.Tra = math.Max(hi.Tra, corner.Tra)
		}
	}

	extent := [3]float64{hi.Sag - lo.Sag, hi.Cor - lo.Cor, hi.Tra - lo.Tra}
	step := math.Max(extent[0], math.Max(extent[1], extent[2])) / float64(gridSize-1)
	if step <= 0 {
		return nil, fmt.Errorf("degenerate bounding box, extent %v", extent)
	}

	grid := &models.Volume{
		Width:  int(extent[0]/step) + 1,
		Height: int(extent[1]/step) + 1,
		Depth:  int(extent[2]/step) + 1,
		Origin: lo,
	}
	grid.VoxelSize.X, grid.VoxelSize.Y, grid.VoxelSize.Z = step, step, step
	grid.Data = make([]float64, grid.Width*grid.Height*grid.Depth)

	p := mat.NewVecDense(4, nil)
	idx := mat.NewVecDense(4, nil)
	for z := 0; z < grid.Depth; z++ {
		for y := 0; y < grid.Height; y++ {
			for x := 0; x < grid.Width; x++ {
				p.SetVec(0, lo.Sag+float64(x)*step)
				p.SetVec(1, lo.Cor+float64(y)*step)
				p.SetVec(2, lo.Tra+float64(z)*step)
				p.SetVec(3, 1)

				count := 0.0
				for i, inv := range inverses {
					idx.MulVec(inv, p)
					if inside(idx, shapes[i]) {
						count++
					}
				}
				grid.Set(x, y, z, count)
			}
		}
	}
	return grid, nil
}

// inside reports whether a voxel-index coordinate lies within the volume
// extent. The affine maps indices to voxel centers, so the boundary sits
// half a voxel beyond the first and last index.
func inside(idx *mat.VecDense, shape [3]int) bool {
	for k := 0; k < 3; k++ {
		if idx.AtVec(k) < -0.5 || idx.AtVec(k) > float64(shape[k])-0.5 {
			return false
		}
	}
	return true
}

// corners returns the physical positions of the eight outer corners of a
// volume, half a voxel beyond the edge voxel centers.
func corners(d *volume.Descriptor) [8]models.Vector {
	shape := d.Shape()
	a := d.Affine()
	var out [8]models.Vector
	for i := 0; i < 8; i++ {
		var idx [3]float64
		for k := 0; k < 3; k++ {
			idx[k] = -0.5
			if i&(1<<k) != 0 {
				idx[k] = float64(shape[k]) - 0.5
			}
		}
		out[i] = models.Vector{
			Sag: a.At(0, 0)*idx[0] + a.At(0, 1)*idx[1] + a.At(0, 2)*idx[2] + a.At(0, 3),
			Cor: a.At(1, 0)*idx[0] + a.At(1, 1)*idx[1] + a.At(1, 2)*idx[2] + a.At(1, 3),
			Tra: a.At(2, 0)*idx[0] + a.At(2, 1)*idx[1] + a.At(2, 2)*idx[2] + a.At(2, 3),
		}
	}
	return out
}

// Viewer extracts and saves 2D slice images from a coverage grid.
type Viewer struct {
	grid *models.Volume

	// maxCount normalizes voxel counts to gray levels
	maxCount float64
}

// NewViewer creates a viewer over a rasterized coverage grid.
func NewViewer(grid *models.Volume) *Viewer {
	maxCount := 0.0
	for _, v := range grid.Data {
		maxCount = math.Max(maxCount, v)
	}
	return &Viewer{grid: grid, maxCount: maxCount}
}

// ExtractSlice extracts a 2D slice from the coverage grid along the
// specified axis. Gray levels scale with the number of volumes covering
// each voxel.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	g := v.grid
	var img *image.Gray16

	switch axis {
	case "x", "X":
		if position >= g.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, g.Width)
		}
		img = image.NewGray16(image.Rect(0, 0, g.Depth, g.Height))
		for y := 0; y < g.Height; y++ {
			for z := 0; z < g.Depth; z++ {
				img.SetGray16(z, y, v.gray(g.At(position, y, z)))
			}
		}

	case "y", "Y":
		if position >= g.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, g.Height)
		}
		img = image.NewGray16(image.Rect(0, 0, g.Width, g.Depth))
		for z := 0; z < g.Depth; z++ {
			for x := 0; x < g.Width; x++ {
				img.SetGray16(x, z, v.gray(g.At(x, position, z)))
			}
		}

	case "z", "Z":
		if position >= g.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, g.Depth)
		}
		img = image.NewGray16(image.Rect(0, 0, g.Width, g.Height))
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				img.SetGray16(x, y, v.gray(g.At(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

func (v *Viewer) gray(count float64) color.Gray16 {
	if v.maxCount == 0 {
		return color.Gray16{}
	}
	value := math.Max(0, math.Min(65535, count/v.maxCount*65535))
	return color.Gray16{Y: uint16(value)}
}

// SaveSlice saves an extracted slice as a JPEG image.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves all slices along the specified axis.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.grid.Width
	case "y", "Y":
		maxPos = v.grid.Height
	case "z", "Z":
		maxPos = v.grid.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("coverage_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
