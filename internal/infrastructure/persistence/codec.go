// Package persistence implements the versioned binary snapshot format for a
// field: magic `TCDE`, little-endian, IEEE-754 binary32 scalars.
package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
)

// Format identity. Bumping Major is a breaking change; Minor is additive only.
const (
	VersionMajor uint16 = 1
	VersionMinor uint16 = 0
)

// Magic is the 4-byte file signature.
var Magic = [4]byte{'T', 'C', 'D', 'E'}

// header is the fixed 16-byte file prefix.
type header struct {
	Magic    [4]byte
	Major    uint16
	Minor    uint16
	Reserved [8]byte
}

// scalars follow the header.
type scalars struct {
	Dim         uint32
	Capacity    uint32
	NCenters    uint32
	Kernel      uint32
	Time        float32
	FractalDim  float32
	TemporalDim float32
}

func writeHeader(w io.Writer, f *field.Field) error {
	h := header{Magic: Magic, Major: VersionMajor, Minor: VersionMinor}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	s := scalars{
		Dim:         uint32(f.Dim()),
		Capacity:    uint32(f.Capacity()),
		NCenters:    uint32(f.Len()),
		Kernel:      uint32(f.Kernel()),
		Time:        float32(f.Time()),
		FractalDim:  float32(f.FractalDim()),
		TemporalDim: float32(f.TemporalDim()),
	}
	return binary.Write(w, binary.LittleEndian, s)
}

func writeMetric(w io.Writer, m *field.MetricTensor) error {
	if m == nil || !m.Valid() {
		return binary.Write(w, binary.LittleEndian, uint8(0))
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(1)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(m.Dim())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, float32(m.Det())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.Entries()); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, m.InverseEntries())
}

func writeCenter(w io.Writer, c field.Center) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(c.Position.Dim())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, []float32(c.Position)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, real(c.Weight)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, imag(c.Weight)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.Width); err != nil {
		return err
	}
	return writeMetric(w, c.Metric)
}

func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", field.ErrCorruptFile, fmt.Sprintf(format, args...))
}

func readHeader(r io.Reader) (scalars, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return scalars{}, corrupt("header: %v", err)
	}
	if h.Magic != Magic {
		return scalars{}, corrupt("bad magic %q", h.Magic)
	}
	if h.Major != VersionMajor {
		return scalars{}, corrupt("unsupported major version %d", h.Major)
	}

	var s scalars
	if err := binary.Read(r, binary.LittleEndian, &s); err != nil {
		return scalars{}, corrupt("scalars: %v", err)
	}
	if s.Dim == 0 || s.Dim > maxDim {
		return scalars{}, corrupt("dimension %d", s.Dim)
	}
	if s.Capacity == 0 || s.Capacity > maxCapacity {
		return scalars{}, corrupt("capacity %d", s.Capacity)
	}
	if s.NCenters > s.Capacity {
		return scalars{}, corrupt("%d centers exceed capacity %d", s.NCenters, s.Capacity)
	}
	if !field.Kernel(s.Kernel).Valid() {
		return scalars{}, corrupt("kernel tag %d", s.Kernel)
	}
	for _, v := range []float32{s.Time, s.FractalDim, s.TemporalDim} {
		if !finite32(v) {
			return scalars{}, corrupt("non-finite scalar")
		}
	}
	return s, nil
}

// Sanity bounds on declared sizes, so a corrupt length prefix cannot drive
// allocation.
const (
	maxDim      = 64
	maxCapacity = 1 << 24
)

func readMetric(r io.Reader, wantDim int) (*field.MetricTensor, error) {
	var present uint8
	if err := binary.Read(r, binary.LittleEndian, &present); err != nil {
		return nil, corrupt("metric flag: %v", err)
	}
	if present == 0 {
		return nil, nil
	}
	var dim uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, corrupt("metric dimension: %v", err)
	}
	if int(dim) != wantDim {
		return nil, corrupt("metric dimension %d, field dimension %d", dim, wantDim)
	}
	var det float32
	if err := binary.Read(r, binary.LittleEndian, &det); err != nil {
		return nil, corrupt("metric determinant: %v", err)
	}
	if !finite32(det) || det <= 0 {
		return nil, corrupt("metric determinant %v", det)
	}
	g := make([]float32, dim*dim)
	if err := binary.Read(r, binary.LittleEndian, g); err != nil {
		return nil, corrupt("metric entries: %v", err)
	}
	gInv := make([]float32, dim*dim)
	if err := binary.Read(r, binary.LittleEndian, gInv); err != nil {
		return nil, corrupt("metric inverse entries: %v", err)
	}
	m, err := field.RestoreMetric(int(dim), det, g, gInv)
	if err != nil {
		return nil, corrupt("metric: %v", err)
	}
	return m, nil
}

func readCenter(r io.Reader, wantDim int) (field.Center, error) {
	var dim uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return field.Center{}, corrupt("center dimension: %v", err)
	}
	if int(dim) != wantDim {
		return field.Center{}, corrupt("center dimension %d, field dimension %d", dim, wantDim)
	}
	coords := make([]float32, dim)
	if err := binary.Read(r, binary.LittleEndian, coords); err != nil {
		return field.Center{}, corrupt("center coordinates: %v", err)
	}
	var re, im, width float32
	if err := binary.Read(r, binary.LittleEndian, &re); err != nil {
		return field.Center{}, corrupt("center weight: %v", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &im); err != nil {
		return field.Center{}, corrupt("center weight: %v", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
		return field.Center{}, corrupt("center width: %v", err)
	}
	for _, v := range coords {
		if !finite32(v) {
			return field.Center{}, corrupt("non-finite coordinate")
		}
	}
	if !finite32(re) || !finite32(im) {
		return field.Center{}, corrupt("non-finite weight")
	}
	if !finite32(width) || width <= 0 {
		return field.Center{}, corrupt("width %v", width)
	}
	metric, err := readMetric(r, wantDim)
	if err != nil {
		return field.Center{}, err
	}
	return field.Center{
		Position: field.Point(coords),
		Weight:   complex(re, im),
		Width:    width,
		Metric:   metric,
	}, nil
}

func finite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
