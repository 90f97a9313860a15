package distance

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ken/siftcluster/pkg/core/feature"
)

// MetricType represents the type of distance metric
type MetricType string

const (
	// Spatial is the Euclidean distance between image positions
	Spatial MetricType = "spatial"

	// SquaredSpatial is the squared Euclidean distance between image positions
	SquaredSpatial MetricType = "squared_spatial"

	// Descriptor is the squared Euclidean distance between descriptors
	Descriptor MetricType = "descriptor"

	// Scale is the signed scale difference (b - a)
	Scale MetricType = "scale"
)

// ErrUnknownMetric is returned by GetMetric for unregistered names
var ErrUnknownMetric = errors.New("unknown distance metric")

// Metric is an interface for feature-to-feature distance calculations
type Metric interface {
	// Distance calculates the distance between two features
	Distance(a, b *feature.Feature) float64

	// Name returns the name of the metric
	Name() MetricType
}

// GetMetric returns a distance metric implementation by name
func GetMetric(metric MetricType) (Metric, error) {
	switch metric {
	case Spatial:
		return &SpatialDistance{}, nil
	case SquaredSpatial:
		return &SquaredSpatialDistance{}, nil
	case Descriptor:
		return &DescriptorDistance{}, nil
	case Scale:
		return &ScaleDistance{}, nil
	default:
		return nil, ErrUnknownMetric
	}
}

// SpatialDistance implements the Euclidean distance on (x, y)
type SpatialDistance struct{}

func (d *SpatialDistance) Distance(a, b *feature.Feature) float64 {
	return math.Sqrt(SquaredXY(a.X, a.Y, b.X, b.Y))
}

func (d *SpatialDistance) Name() MetricType {
	return Spatial
}

// SquaredSpatialDistance implements the squared Euclidean distance on (x, y).
// It orders pairs the same way SpatialDistance does.
type SquaredSpatialDistance struct{}

func (d *SquaredSpatialDistance) Distance(a, b *feature.Feature) float64 {
	return SquaredXY(a.X, a.Y, b.X, b.Y)
}

func (d *SquaredSpatialDistance) Name() MetricType {
	return SquaredSpatial
}

// DescriptorDistance implements the squared Euclidean distance between descriptors.
// Descriptors of different dimension are infinitely far apart.
type DescriptorDistance struct{}

func (d *DescriptorDistance) Distance(a, b *feature.Feature) float64 {
	return SquaredL2(a.Descriptor, b.Descriptor)
}

func (d *DescriptorDistance) Name() MetricType {
	return Descriptor
}

// ScaleDistance implements the signed scale difference b.Scale - a.Scale.
// It is not symmetric.
type ScaleDistance struct{}

func (d *ScaleDistance) Distance(a, b *feature.Feature) float64 {
	return b.Scale - a.Scale
}

func (d *ScaleDistance) Name() MetricType {
	return Scale
}

// SquaredXY returns the squared Euclidean distance between two points
func SquaredXY(x1, y1, x2, y2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	return dx*dx + dy*dy
}

// SquaredL2 returns the squared Euclidean distance between two vectors
func SquaredL2(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	if len(a) == 0 {
		return 0
	}
	d := floats.Distance(a, b, 2)
	return d * d
}

// Color returns the L1 distance between two 3-channel color summaries
func Color(a, b [3]float64) float64 {
	return math.Abs(a[0]-b[0]) + math.Abs(a[1]-b[1]) + math.Abs(a[2]-b[2])
}
