package models

// Vector is a 3-component quantity expressed in the scanner patient
// coordinate system (sagittal, coronal, transverse components).
type Vector struct {
	Sag float64
	Cor float64
	Tra float64
}

// FOV is the field of view of an imaging volume in millimeters.
type FOV struct {
	// Readout is the extent along the readout (frequency-encoding) axis
	Readout float64

	// Phase is the extent along the phase-encoding axis
	Phase float64

	// Slice is the extent along the slice-normal axis
	Slice float64
}

// Resolution is the voxel grid size of an imaging volume.
type Resolution struct {
	X, Y, Z int
}

// GeometrySpec fully describes the geometry of one imaging volume as the
// scanner expresses it: a slice-normal direction, an in-plane rotation, a
// center position and a field of view, plus an optional explicit grid.
type GeometrySpec struct {
	// Name labels the volume for error reporting
	Name string

	// Normal is the slice-normal direction, treated as already normalized
	Normal Vector

	// InPlaneRot is the in-plane rotation about the normal in radians
	InPlaneRot float64

	// Position is the volume center in mm
	Position Vector

	// FOV is the field of view in mm, all components positive
	FOV FOV

	// Resolution is the voxel grid; nil derives floor(FOV) per axis
	Resolution *Resolution

	// Thickness is the slice thickness in mm; zero derives FOV.Slice/Resolution.Z
	Thickness float64
}
