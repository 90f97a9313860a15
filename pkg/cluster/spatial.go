package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/ken/siftcluster/pkg/core/distance"
	"github.com/ken/siftcluster/pkg/core/feature"
)

// maxSpatialIterations caps the Lloyd loop of the spatial pre-pass.
const maxSpatialIterations = 100

// SpatialClusterer partitions features by position alone. Seeded
// initialization runs it once per run with the run's random source.
type SpatialClusterer interface {
	Partition(features []*feature.Feature, k int, rng *rand.Rand) (Clustering, error)
}

// SpatialKMeans is plain Lloyd's k-means over (x, y) on muesli/clusters.
type SpatialKMeans struct {
	metric distance.Metric
}

// NewSpatialKMeans returns a spatial k-means using Euclidean position distance.
func NewSpatialKMeans() *SpatialKMeans {
	return &SpatialKMeans{metric: &distance.SpatialDistance{}}
}

// Metric returns the positional metric the partition is computed under.
func (s *SpatialKMeans) Metric() distance.Metric {
	return s.metric
}

// frame maps image positions into the unit square muesli/clusters seeds
// its centers in. One scale factor for both axes keeps distances ordered.
type frame struct {
	minX, minY, span float64
}

func newFrame(features []*feature.Feature) frame {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, f := range features {
		minX, maxX = math.Min(minX, f.X), math.Max(maxX, f.X)
		minY, maxY = math.Min(minY, f.Y), math.Max(maxY, f.Y)
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	return frame{minX: minX, minY: minY, span: span}
}

func (fr frame) coordinates(f *feature.Feature) clusters.Coordinates {
	return clusters.Coordinates{(f.X - fr.minX) / fr.span, (f.Y - fr.minY) / fr.span}
}

// point adapts a feature to a k-means observation keeping its index.
type point struct {
	index  int
	f      *feature.Feature
	frame  frame
	metric distance.Metric
}

func (p point) Coordinates() clusters.Coordinates {
	return p.frame.coordinates(p.f)
}

// Distance measures in image space so the metric sees pixel positions.
func (p point) Distance(c clusters.Coordinates) float64 {
	center := &feature.Feature{
		X: c[0]*p.frame.span + p.frame.minX,
		Y: c[1]*p.frame.span + p.frame.minY,
	}
	return p.metric.Distance(p.f, center)
}

// Partition runs k-means to convergence. Centers are seeded k-means++ style
// from rng, so equal seeds give equal partitions. A nil rng leaves seeding
// to muesli/kmeans, which draws from the global source. Iterations are not
// reported; the returned Clustering is at iteration zero.
func (s *SpatialKMeans) Partition(features []*feature.Feature, k int, rng *rand.Rand) (Clustering, error) {
	if k < 1 || k > len(features) {
		return nil, fmt.Errorf("%w: cannot partition %d features into %d clusters", ErrInvalidParameters, len(features), k)
	}

	fr := newFrame(features)
	observations := make(clusters.Observations, len(features))
	for i, f := range features {
		observations[i] = point{index: i, f: f, frame: fr, metric: s.metric}
	}

	var cc clusters.Clusters
	if rng == nil {
		var err error
		if cc, err = kmeans.New().Partition(observations, k); err != nil {
			return nil, fmt.Errorf("spatial k-means: %w", err)
		}
	} else {
		cc = s.lloyd(observations, s.plusPlus(features, k, rng, fr))
	}

	result := newAssignment(features, k)
	for ci, c := range cc {
		for _, o := range c.Observations {
			result.labels[o.(point).index] = ci
		}
	}
	return result, nil
}

// plusPlus picks k centers among the features, each drawn with probability
// proportional to its squared distance from the closest center so far.
func (s *SpatialKMeans) plusPlus(features []*feature.Feature, k int, rng *rand.Rand, fr frame) clusters.Clusters {
	n := len(features)
	cc := make(clusters.Clusters, k)
	chosen := make([]bool, n)

	first := rng.Intn(n)
	chosen[first] = true
	cc[0].Center = fr.coordinates(features[first])

	minDist := make([]float64, n)
	for i, f := range features {
		d := s.metric.Distance(f, features[first])
		minDist[i] = d * d
	}

	for c := 1; c < k; c++ {
		total := 0.0
		for _, d := range minDist {
			total += d
		}

		selected := -1
		if total > 0 {
			target := rng.Float64() * total
			cum := 0.0
			for i, d := range minDist {
				if d == 0 {
					continue
				}
				selected = i
				cum += d
				if cum >= target {
					break
				}
			}
		} else {
			// Every feature sits on a center; take any unused one.
			for _, i := range rng.Perm(n) {
				if !chosen[i] {
					selected = i
					break
				}
			}
		}

		chosen[selected] = true
		cc[c].Center = fr.coordinates(features[selected])
		for i, f := range features {
			d := s.metric.Distance(f, features[selected])
			minDist[i] = math.Min(minDist[i], d*d)
		}
	}
	return cc
}

// lloyd alternates nearest-center assignment and recentering until no
// observation moves. An empty cluster keeps its center.
func (s *SpatialKMeans) lloyd(observations clusters.Observations, cc clusters.Clusters) clusters.Clusters {
	labels := make([]int, len(observations))
	for i := range labels {
		labels[i] = Unassigned
	}

	for iter := 0; iter < maxSpatialIterations; iter++ {
		cc.Reset()
		changed := false
		for i, o := range observations {
			ci := cc.Nearest(o)
			cc[ci].Append(o)
			if labels[i] != ci {
				labels[i] = ci
				changed = true
			}
		}
		if !changed {
			break
		}
		cc.Recenter()
	}
	return cc
}
