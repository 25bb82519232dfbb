package protocol

import (
	"github.com/aghaeifar/recotwix/internal/models"
)

// SampleDims reports the length of named dimensions of the acquired k-space
// sample array. Implemented by the raw-data reader; the summary uses it for
// the readout partial-Fourier heuristic only.
type SampleDims interface {
	// DimLen returns the length along the named dimension (e.g. "Col" for
	// readout columns) and whether that dimension exists.
	DimLen(name string) (int, bool)
}

// pfReadoutTolerance is the sample-count slack before a readout is treated
// as partial Fourier. Kept verbatim from the scanner tooling; its derivation
// is undocumented.
const pfReadoutTolerance = 4

// Shims holds the corrective field coefficients per spherical-harmonic
// order, plus the gradient offset currents. Absent entries read as zero.
type Shims struct {
	// A00 is the nucleus center frequency in Hz
	A00 float64

	// X, Y, Z are the gradient offset currents
	X, Y, Z float64

	// second and third order shim currents
	A20, A21, B21, A22, B22, A30, A31, B31, A32 float64
}

// Summary is a single-pass extraction of the scalar and small-vector
// acquisition parameters of one measurement. It is independent of the
// geometry pipeline: pure field mapping with explicit defaults, computed
// once at construction.
type Summary struct {
	// Is3D reports a 3D (partition-encoded) acquisition
	Is3D bool

	// Resolution is the nominal matrix size; Z counts slices for 2D scans
	// and partitions for 3D scans
	Resolution models.Resolution

	// IsParallelImaging reports an active parallel-acquisition mode
	IsParallelImaging bool

	// IsRefScanSeparate reports separately acquired reference lines
	IsRefScanSeparate bool

	// Acceleration is the undersampling factor (phase-encode, partition)
	Acceleration [2]int

	// Partial-Fourier flags per axis. The readout flag is a heuristic
	// comparing nominal resolution against acquired readout samples.
	IsPartialFourierRO  bool
	IsPartialFourierPE1 bool
	IsPartialFourierPE2 bool

	// ProtocolName is the operator-visible protocol name
	ProtocolName string

	// TR is the repetition time in ms
	TR float64

	// TE holds one echo time per contrast, in us
	TE []float64

	// FlipAngle is the excitation flip angle in degrees
	FlipAngle float64

	// CoilName identifies the first receive coil element
	CoilName string

	// Shims are the shim and gradient-offset currents
	Shims Shims
}

// NewSummary reads the fixed parameter set from a full parsed header (the
// tree holding MeasYaps, Meas and Phoenix). img supplies the acquired
// readout length for the partial-Fourier heuristic and may be nil, in which
// case that flag stays false. Missing keys at any level resolve to the zero
// defaults; nothing here errors.
func NewSummary(hdr Protocol, img SampleDims) *Summary {
	yaps := hdr.Map("MeasYaps")
	meas := hdr.Map("Meas")
	phoenix := hdr.Map("Phoenix")

	s := &Summary{}
	s.Is3D = yaps.Int(0, "sKSpace", "ucDimension") == 4

	s.Resolution = models.Resolution{
		X: yaps.Int(0, "sKSpace", "lBaseResolution"),
		Y: yaps.Int(0, "sKSpace", "lPhaseEncodingLines"),
		Z: yaps.Int(0, "sSliceArray", "lSize"),
	}
	if s.Is3D {
		s.Resolution.Z = yaps.Int(0, "sKSpace", "lPartitions")
	}

	s.IsParallelImaging = yaps.Int(0, "sPat", "ucPATMode") == 2
	s.IsRefScanSeparate = yaps.Int(0, "sPat", "ucRefScanMode") == 4
	s.Acceleration = [2]int{
		yaps.Int(0, "sPat", "lAccelFactPE"),
		yaps.Int(0, "sPat", "lAccelFact3D"),
	}

	if img != nil {
		if cols, ok := img.DimLen("Col"); ok {
			diff := s.Resolution.X - cols
			if diff < 0 {
				diff = -diff
			}
			s.IsPartialFourierRO = diff > pfReadoutTolerance
		}
	}
	// 16 encodes "off" in the partial-Fourier enums
	s.IsPartialFourierPE1 = yaps.Int(16, "sKSpace", "ucPhasePartialFourier") != 16
	s.IsPartialFourierPE2 = yaps.Int(16, "sKSpace", "ucSlicePartialFourier") != 16

	s.ProtocolName = meas.String("", "tProtocolName")
	s.TR = meas.FloatAt(0, 0, "alTR") / 1000
	contrasts := meas.Int(0, "lContrasts")
	if n := meas.SliceLen("alTE"); contrasts > n {
		contrasts = n
	}
	for i := 0; i < contrasts; i++ {
		s.TE = append(s.TE, meas.FloatAt(0, i, "alTE"))
	}
	s.FlipAngle = meas.FloatAt(0, 0, "adFlipAngleDegree")

	s.CoilName = yaps.MapAt(0, "sCoilSelectMeas", "aRxCoilSelectData").
		MapAt(0, "asList").
		String("", "sCoilElementID", "tCoilID")

	gpa := phoenix.MapAt(0, "sGRADSPEC", "asGPAData")
	s.Shims = Shims{
		A00: yaps.MapAt(0, "sTXSPEC", "asNucleusInfo").Float(0, "lFrequency"),
		X:   gpa.Float(0, "lOffsetX"),
		Y:   gpa.Float(0, "lOffsetY"),
		Z:   gpa.Float(0, "lOffsetZ"),
	}
	shim := func(i int) float64 {
		return phoenix.FloatAt(0, i, "sGRADSPEC", "alShimCurrent")
	}
	s.Shims.A20 = shim(0)
	s.Shims.A21 = shim(1)
	s.Shims.B21 = shim(2)
	s.Shims.A22 = shim(3)
	s.Shims.B22 = shim(4)
	s.Shims.A30 = shim(5)
	s.Shims.A31 = shim(6)
	s.Shims.B31 = shim(7)
	s.Shims.A32 = shim(8)

	return s
}
