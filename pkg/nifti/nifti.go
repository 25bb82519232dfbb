// Package nifti writes single-file NIfTI-1 images. It covers exactly what
// the geometry pipeline needs: a 3D voxel array plus an sform affine,
// emitted as .nii or gzip-compressed .nii.gz. Header layout follows the
// official nifti1.h definition.
package nifti

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// NIfTI-1 datatype codes for the voxel types supported here.
const (
	dtUint8   int16 = 2
	dtFloat32 int16 = 16
)

// spatial units are millimeters
const unitsMM byte = 2

// header is the fixed 348-byte NIfTI-1 header, little-endian on disk.
type header struct {
	SizeofHdr    int32
	DataType     [10]byte // unused, historical
	DBName       [18]byte // unused, historical
	Extents      int32    // unused, historical
	SessionError int16    // unused, historical
	Regular      byte     // unused, historical
	DimInfo      byte

	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XyztUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32 // unused, historical
	Glmin         int32 // unused, historical

	Descrip [80]byte
	AuxFile [24]byte

	QformCode int16
	SformCode int16
	QuaternB  float32
	QuaternC  float32
	QuaternD  float32
	QoffsetX  float32
	QoffsetY  float32
	QoffsetZ  float32
	SrowX     [4]float32
	SrowY     [4]float32
	SrowZ     [4]float32

	IntentName [16]byte
	Magic      [4]byte
}

// Image is a minimal in-memory NIfTI-1 volume: a shape, an sform affine and
// the voxel data. Exactly one of Uint8 or Float32 must be set, with length
// Shape[0]*Shape[1]*Shape[2]; voxels are laid out with the first shape axis
// fastest, matching the NIfTI array convention.
type Image struct {
	Shape   [3]int
	Affine  *mat.Dense
	Uint8   []uint8
	Float32 []float32
}

// Write saves the image to path. A .nii.gz suffix selects gzip compression,
// anything else is written raw.
func (img *Image) Write(path string) error {
	n := img.Shape[0] * img.Shape[1] * img.Shape[2]
	if img.Shape[0] <= 0 || img.Shape[1] <= 0 || img.Shape[2] <= 0 {
		return fmt.Errorf("invalid shape %v", img.Shape)
	}
	if (img.Uint8 == nil) == (img.Float32 == nil) {
		return fmt.Errorf("exactly one of Uint8 and Float32 must be set")
	}
	if len(img.Uint8) != n && len(img.Float32) != n {
		return fmt.Errorf("voxel data length does not match shape %v", img.Shape)
	}
	if r, c := img.Affine.Dims(); r != 4 || c != 4 {
		return fmt.Errorf("affine must be 4x4, got %dx%d", r, c)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating nifti file: %w", err)
	}
	defer f.Close()

	var w io.Writer = bufio.NewWriter(f)
	flush := w.(*bufio.Writer).Flush
	if strings.HasSuffix(path, ".nii.gz") {
		gz := gzip.NewWriter(w)
		inner := flush
		w, flush = gz, func() error {
			if err := gz.Close(); err != nil {
				return err
			}
			return inner()
		}
	}

	if err := img.encode(w); err != nil {
		return fmt.Errorf("writing nifti file: %w", err)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("writing nifti file: %w", err)
	}
	return nil
}

func (img *Image) encode(w io.Writer) error {
	hdr := header{
		SizeofHdr: 348,
		Dim:       [8]int16{3, int16(img.Shape[0]), int16(img.Shape[1]), int16(img.Shape[2]), 1, 1, 1, 1},
		Datatype:  dtUint8,
		Bitpix:    8,
		SclSlope:  1,
		XyztUnits: unitsMM,
		VoxOffset: 352,
		SformCode: 1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	if img.Float32 != nil {
		hdr.Datatype = dtFloat32
		hdr.Bitpix = 32
	}

	// pixdim from the affine column norms; the sform carries the full
	// orientation, pixdim is informational
	hdr.Pixdim[0] = 1
	for c := 0; c < 3; c++ {
		s := math.Hypot(math.Hypot(img.Affine.At(0, c), img.Affine.At(1, c)), img.Affine.At(2, c))
		hdr.Pixdim[c+1] = float32(s)
	}
	for c := 0; c < 4; c++ {
		hdr.SrowX[c] = float32(img.Affine.At(0, c))
		hdr.SrowY[c] = float32(img.Affine.At(1, c))
		hdr.SrowZ[c] = float32(img.Affine.At(2, c))
	}

	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	// 4 bytes of extension flags, all zero: no extensions
	if _, err := w.Write([]byte{0, 0, 0, 0}); err != nil {
		return err
	}
	if img.Uint8 != nil {
		_, err := w.Write(img.Uint8)
		return err
	}
	return binary.Write(w, binary.LittleEndian, img.Float32)
}
