package volume

import (
	"fmt"

	"github.com/aghaeifar/recotwix/internal/models"
	"github.com/aghaeifar/recotwix/pkg/protocol"
)

// Collection is an ordered, named group of Descriptors extracted from one
// protocol section. A section missing from the protocol yields an empty
// collection, never an error.
type Collection struct {
	name string
	vols []*Descriptor
}

// sectionLoader locates one protocol section and yields the geometry specs
// it contains, in source order. Absent sections yield nothing. The three
// section kinds differ only in lookup path and in whether the grid is shared
// across entries, so they are closures over one Collection type rather than
// separate types.
type sectionLoader func(prot protocol.Protocol) []models.GeometrySpec

func newCollection(name string, prot protocol.Protocol, load sectionLoader) (*Collection, error) {
	c := &Collection{name: name}
	for i, spec := range load(prot) {
		spec.Name = fmt.Sprintf("%s[%d]", name, i)
		d, err := NewDescriptor(spec)
		if err != nil {
			return nil, fmt.Errorf("building %s collection: %w", name, err)
		}
		c.vols = append(c.vols, d)
	}
	return c, nil
}

// Name returns the collection's label (slice, pTx or adjustment).
func (c *Collection) Name() string { return c.name }

// Len returns the number of volumes in the collection.
func (c *Collection) Len() int { return len(c.vols) }

// At returns the volume at index i, in protocol source order.
func (c *Collection) At(i int) (*Descriptor, error) {
	if i < 0 || i >= len(c.vols) {
		return nil, fmt.Errorf("item out of range: %s collection has %d volumes but %d was asked",
			c.name, len(c.vols), i)
	}
	return c.vols[i], nil
}

// All returns the volumes in order for sequential iteration. The returned
// slice is a copy; the collection itself stays immutable.
func (c *Collection) All() []*Descriptor {
	out := make([]*Descriptor, len(c.vols))
	copy(out, c.vols)
	return out
}

// geometryFromSection reads one volume-orientation block: sNormal,
// dInPlaneRot, sPosition, and the readout/phase/thickness field of view.
// Missing normal or position components default to zero.
func geometryFromSection(sec protocol.Protocol) models.GeometrySpec {
	return models.GeometrySpec{
		Normal: models.Vector{
			Sag: sec.Float(0, "sNormal", "dSag"),
			Cor: sec.Float(0, "sNormal", "dCor"),
			Tra: sec.Float(0, "sNormal", "dTra"),
		},
		InPlaneRot: sec.Float(0, "dInPlaneRot"),
		Position: models.Vector{
			Sag: sec.Float(0, "sPosition", "dSag"),
			Cor: sec.Float(0, "sPosition", "dCor"),
			Tra: sec.Float(0, "sPosition", "dTra"),
		},
		FOV: models.FOV{
			Readout: sec.Float(0, "dReadoutFOV"),
			Phase:   sec.Float(0, "dPhaseFOV"),
			Slice:   sec.Float(0, "dThickness"),
		},
	}
}

// kspaceResolution computes the acquisition grid shared by every slice in
// the slice array. lPartitions only means something for 3D acquisitions; 2D
// scans get a single partition per slice.
func kspaceResolution(prot protocol.Protocol) models.Resolution {
	res := models.Resolution{
		X: prot.Int(0, "sKSpace", "lBaseResolution"),
		Y: prot.Int(0, "sKSpace", "lPhaseEncodingLines"),
		Z: 1,
	}
	if prot.Int(0, "sKSpace", "ucDimension") == 4 {
		res.Z = prot.Int(1, "sKSpace", "lPartitions")
	}
	return res
}

// sliceSection loads sSliceArray.asSlice; every entry shares the k-space
// resolution.
func sliceSection(prot protocol.Protocol) []models.GeometrySpec {
	entries := prot.Slice("sSliceArray", "asSlice")
	if len(entries) == 0 {
		return nil
	}
	res := kspaceResolution(prot)

	var specs []models.GeometrySpec
	for _, e := range entries {
		sec := toProtocol(e)
		if sec == nil {
			continue
		}
		spec := geometryFromSection(sec)
		r := res
		spec.Resolution = &r
		specs = append(specs, spec)
	}
	return specs
}

func toProtocol(v any) protocol.Protocol {
	switch m := v.(type) {
	case protocol.Protocol:
		return m
	case map[string]any:
		return protocol.Protocol(m)
	default:
		return nil
	}
}

// ptxSection loads sPTXData.asPTXVolume; each parallel-transmit volume
// derives its own grid from its field of view.
func ptxSection(prot protocol.Protocol) []models.GeometrySpec {
	var specs []models.GeometrySpec
	for _, e := range prot.Slice("sPTXData", "asPTXVolume") {
		sec := toProtocol(e)
		if sec == nil {
			continue
		}
		specs = append(specs, geometryFromSection(sec))
	}
	return specs
}

// adjSection loads the singleton sAdjData.sAdjVolume.
func adjSection(prot protocol.Protocol) []models.GeometrySpec {
	sec := prot.Map("sAdjData", "sAdjVolume")
	if sec == nil {
		return nil
	}
	return []models.GeometrySpec{geometryFromSection(sec)}
}
