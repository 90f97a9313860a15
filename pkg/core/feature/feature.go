package feature

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInvalidDimension is returned when descriptor lengths don't match
	ErrInvalidDimension = errors.New("invalid descriptor dimension")

	// ErrShortBuffer is returned when a buffer ends before a complete record
	ErrShortBuffer = errors.New("buffer too small to decode feature")
)

// recordHeader is image index (4) + x, y, scale, orientation (4*8) + dimension (4)
const recordHeader = 4 + 4*8 + 4

// Feature is one local descriptor extracted from an image
type Feature struct {
	Descriptor  []float64 // Descriptor components, e.g. 128 for SIFT
	X           float64   // Column in the source image
	Y           float64   // Row in the source image
	Scale       float64   // Detection scale
	Orientation float64   // Dominant gradient orientation in radians
	Image       int       // Index of the source image
}

// New creates a feature at the given position and scale
func New(x, y, scale float64, descriptor []float64) *Feature {
	return &Feature{
		Descriptor: descriptor,
		X:          x,
		Y:          y,
		Scale:      scale,
	}
}

// Dimension returns the descriptor length
func (f *Feature) Dimension() int {
	return len(f.Descriptor)
}

// Copy creates a deep copy of the feature
func (f *Feature) Copy() *Feature {
	desc := make([]float64, len(f.Descriptor))
	copy(desc, f.Descriptor)
	return &Feature{
		Descriptor:  desc,
		X:           f.X,
		Y:           f.Y,
		Scale:       f.Scale,
		Orientation: f.Orientation,
		Image:       f.Image,
	}
}

// Equal reports whether both features carry the same descriptor values
func (f *Feature) Equal(other *Feature) bool {
	if other == nil || len(f.Descriptor) != len(other.Descriptor) {
		return false
	}
	return floats.Equal(f.Descriptor, other.Descriptor)
}

// Mean returns the feature-wise mean of the given features, or nil if there are none.
// All features must share a descriptor dimension.
func Mean(features []*Feature) (*Feature, error) {
	if len(features) == 0 {
		return nil, nil
	}

	dim := features[0].Dimension()
	desc := make([]float64, dim)
	xs := make([]float64, len(features))
	ys := make([]float64, len(features))
	scales := make([]float64, len(features))
	orients := make([]float64, len(features))

	for i, f := range features {
		if f.Dimension() != dim {
			return nil, ErrInvalidDimension
		}
		floats.Add(desc, f.Descriptor)
		xs[i] = f.X
		ys[i] = f.Y
		scales[i] = f.Scale
		orients[i] = f.Orientation
	}
	floats.Scale(1/float64(len(features)), desc)

	return &Feature{
		Descriptor:  desc,
		X:           stat.Mean(xs, nil),
		Y:           stat.Mean(ys, nil),
		Scale:       stat.Mean(scales, nil),
		Orientation: stat.Mean(orients, nil),
		Image:       features[0].Image,
	}, nil
}

// Encode serializes the feature to a byte slice
func (f *Feature) Encode() []byte {
	buf := make([]byte, recordHeader+8*len(f.Descriptor))

	binary.LittleEndian.PutUint32(buf[0:], uint32(f.Image))
	binary.LittleEndian.PutUint64(buf[4:], math.Float64bits(f.X))
	binary.LittleEndian.PutUint64(buf[12:], math.Float64bits(f.Y))
	binary.LittleEndian.PutUint64(buf[20:], math.Float64bits(f.Scale))
	binary.LittleEndian.PutUint64(buf[28:], math.Float64bits(f.Orientation))
	binary.LittleEndian.PutUint32(buf[36:], uint32(len(f.Descriptor)))

	for i, val := range f.Descriptor {
		binary.LittleEndian.PutUint64(buf[recordHeader+i*8:], math.Float64bits(val))
	}

	return buf
}

// Decode deserializes a feature from a byte slice and reports how many bytes it consumed
func Decode(buf []byte) (*Feature, int, error) {
	if len(buf) < recordHeader {
		return nil, 0, ErrShortBuffer
	}

	dim := int(binary.LittleEndian.Uint32(buf[36:]))
	size := recordHeader + 8*dim
	if len(buf) < size {
		return nil, 0, fmt.Errorf("%w: expected %d bytes, have %d", ErrShortBuffer, size, len(buf))
	}

	desc := make([]float64, dim)
	for i := range desc {
		desc[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[recordHeader+i*8:]))
	}

	return &Feature{
		Descriptor:  desc,
		Image:       int(binary.LittleEndian.Uint32(buf[0:])),
		X:           math.Float64frombits(binary.LittleEndian.Uint64(buf[4:])),
		Y:           math.Float64frombits(binary.LittleEndian.Uint64(buf[12:])),
		Scale:       math.Float64frombits(binary.LittleEndian.Uint64(buf[20:])),
		Orientation: math.Float64frombits(binary.LittleEndian.Uint64(buf[28:])),
	}, size, nil
}

// EncodeSet serializes a sequence of features, prefixed by their count
func EncodeSet(features []*Feature) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(features)))
	for _, f := range features {
		buf = append(buf, f.Encode()...)
	}
	return buf
}

// DecodeSet deserializes a sequence written by EncodeSet
func DecodeSet(buf []byte) ([]*Feature, error) {
	if len(buf) < 4 {
		return nil, ErrShortBuffer
	}
	count := int(binary.LittleEndian.Uint32(buf))
	offset := 4
	// Each record takes at least a header, so the count is bounded by the buffer
	if count > (len(buf)-offset)/recordHeader {
		return nil, fmt.Errorf("%w: %d features cannot fit in %d bytes", ErrShortBuffer, count, len(buf)-offset)
	}

	features := make([]*Feature, 0, count)
	for i := 0; i < count; i++ {
		f, n, err := Decode(buf[offset:])
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		features = append(features, f)
		offset += n
	}
	return features, nil
}

// Set is the ordered collection of features extracted from one image.
// The image is only used to key color-neighborhood sampling.
type Set struct {
	Name     string
	Image    image.Image
	Features []*Feature
}

// NewSet creates a feature set for an image
func NewSet(name string, img image.Image, features []*Feature) *Set {
	return &Set{
		Name:     name,
		Image:    img,
		Features: features,
	}
}

// Len returns the number of features in the set
func (s *Set) Len() int {
	return len(s.Features)
}

// Dimension returns the shared descriptor dimension of the set
func (s *Set) Dimension() (int, error) {
	if len(s.Features) == 0 {
		return 0, nil
	}
	dim := s.Features[0].Dimension()
	for _, f := range s.Features[1:] {
		if f.Dimension() != dim {
			return 0, ErrInvalidDimension
		}
	}
	return dim, nil
}
