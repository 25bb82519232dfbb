// Package transform implements the coordinate transform pipeline that turns
// the scanner's normal/rotation/position/field-of-view description of an
// imaging volume into a NIfTI voxel-to-physical affine. All functions are
// pure and operate on gonum dense matrices.
package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aghaeifar/recotwix/internal/models"
)

// Orientation identifies the dominant scanner axis of a slice normal.
type Orientation int

const (
	Sagittal Orientation = iota
	Coronal
	Transverse
)

// String returns the lowercase name of the orientation.
func (o Orientation) String() string {
	switch o {
	case Sagittal:
		return "sagittal"
	case Coronal:
		return "coronal"
	default:
		return "transverse"
	}
}

// ClassifyNormal returns the dominant axis of a slice normal. Ties resolve
// to transverse, then coronal, then sagittal, matching the scanner's own
// orientation classifier.
func ClassifyNormal(sag, cor, tra float64) Orientation {
	aSag, aCor, aTra := math.Abs(sag), math.Abs(cor), math.Abs(tra)
	switch {
	case aSag > aCor && aSag > aTra:
		return Sagittal
	case aCor > aSag && aCor > aTra:
		return Coronal
	default:
		return Transverse
	}
}

// NormalToDCM builds the orthonormal basis {readout, phase, slice-normal} of
// an imaging volume in scanner space, returned as a 3x3 direction-cosine
// matrix with columns (readout, phase, normal).
//
// The phase axis is constructed orthogonal to the normal from a reference
// axis selected by the normal's dominant component; selecting per dominant
// component keeps the construction away from the degenerate case where the
// normal is nearly parallel to a fixed reference axis. Readout completes the
// right-handed basis, and both in-plane axes are then rotated by rot radians
// about the normal. A pure transverse normal with zero rotation yields the
// identity.
//
// The normal is treated as already normalized; callers own that contract.
func NormalToDCM(sag, cor, tra, rot float64) *mat.Dense {
	gs := [3]float64{sag, cor, tra}

	var gp [3]float64
	switch ClassifyNormal(sag, cor, tra) {
	case Transverse:
		k := 1 / math.Hypot(cor, tra)
		gp = [3]float64{0, tra * k, -cor * k}
	case Coronal:
		k := 1 / math.Hypot(sag, cor)
		gp = [3]float64{cor * k, -sag * k, 0}
	default: // Sagittal
		k := 1 / math.Hypot(sag, cor)
		gp = [3]float64{-cor * k, sag * k, 0}
	}

	gr := cross(gp, gs)

	if rot != 0 {
		sin, cos := math.Sincos(rot)
		for i := 0; i < 3; i++ {
			gp[i], gr[i] = cos*gp[i]-sin*gr[i], sin*gp[i]+cos*gr[i]
		}
	}

	return mat.NewDense(3, 3, []float64{
		gr[0], gp[0], gs[0],
		gr[1], gp[1], gs[1],
		gr[2], gp[2], gs[2],
	})
}

// RigidTransform composes a 3x3 direction-cosine matrix and a position into
// a homogeneous 4x4 rigid transform: rotation block, translation column,
// bottom row (0,0,0,1).
func RigidTransform(dcm *mat.Dense, pos models.Vector) *mat.Dense {
	t := mat.NewDense(4, 4, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			t.Set(r, c, dcm.At(r, c))
		}
	}
	t.Set(0, 3, pos.Sag)
	t.Set(1, 3, pos.Cor)
	t.Set(2, 3, pos.Tra)
	t.Set(3, 3, 1)
	return t
}

// NiftiAffine derives the voxel-index to physical-coordinate affine from a
// rigid transform and the voxel geometry. Data axes are ordered
// (phase, readout, slice) to match the array shape convention, with column
// scales (FOV.Phase/res.Y, FOV.Readout/res.X, thickness). The translation
// places index (0,0,0) at the center of the first voxel, not the volume
// center: the rigid transform's position is the volume center, so half the
// grid span, measured between the first and last voxel centers, is
// subtracted along each data axis.
func NiftiAffine(tf *mat.Dense, fov models.FOV, res models.Resolution, thickness float64) *mat.Dense {
	scale := [3]float64{
		fov.Phase / float64(res.Y),
		fov.Readout / float64(res.X),
		thickness,
	}
	// rigid transform columns are (readout, phase, slice); data axes swap
	// the in-plane pair
	src := [3]int{1, 0, 2}

	a := mat.NewDense(4, 4, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			a.Set(r, c, tf.At(r, src[c])*scale[c])
		}
	}

	half := [3]float64{
		float64(res.Y-1) / 2,
		float64(res.X-1) / 2,
		float64(res.Z-1) / 2,
	}
	for r := 0; r < 3; r++ {
		shift := a.At(r, 0)*half[0] + a.At(r, 1)*half[1] + a.At(r, 2)*half[2]
		a.Set(r, 3, tf.At(r, 3)-shift)
	}
	a.Set(3, 3, 1)
	return a
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
