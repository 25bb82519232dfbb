package models

// Volume is a scalar grid covering a region of scanner space, used for
// rasterizing the coverage of planned imaging volumes.
type Volume struct {
	// Data is the 3D grid as a 1D array in row-major order (x fastest)
	Data []float64

	// Width, Height, Depth are the grid dimensions in voxels
	Width  int
	Height int
	Depth  int

	// VoxelSize is the physical size of each grid voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}

	// Origin is the physical position of the center of voxel (0,0,0) in mm
	Origin Vector
}

// At returns the value at grid index (x, y, z). Out-of-range indices read as
// zero so callers can probe neighborhoods without bounds bookkeeping.
func (v *Volume) At(x, y, z int) float64 {
	if x < 0 || x >= v.Width || y < 0 || y >= v.Height || z < 0 || z >= v.Depth {
		return 0
	}
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Set writes the value at grid index (x, y, z). Out-of-range indices are
// ignored.
func (v *Volume) Set(x, y, z int, value float64) {
	if x < 0 || x >= v.Width || y < 0 || y >= v.Height || z < 0 || z >= v.Depth {
		return
	}
	v.Data[z*v.Width*v.Height+y*v.Width+x] = value
}
