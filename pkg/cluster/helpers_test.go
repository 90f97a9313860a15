package cluster

import (
	"image"
	"math/rand"
	"sync/atomic"

	"github.com/ken/siftcluster/pkg/core/distance"
	"github.com/ken/siftcluster/pkg/core/feature"
)

// twoBlobs returns four features near (0,0) and four near (10,10) with
// identical descriptors and scales. The nil image gives identical colors.
func twoBlobs() *feature.Set {
	desc := []float64{1, 2, 3, 4}
	pos := [][2]float64{
		{0, 0}, {1, 0}, {0, 1}, {1, 1},
		{10, 10}, {11, 10}, {10, 11}, {11, 11},
	}
	features := make([]*feature.Feature, len(pos))
	for i, p := range pos {
		d := make([]float64, len(desc))
		copy(d, desc)
		features[i] = feature.New(p[0], p[1], 2, d)
	}
	return feature.NewSet("blobs", nil, features)
}

// randomSet returns n features with random positions, scales and descriptors.
func randomSet(n int, seed int64) *feature.Set {
	rng := rand.New(rand.NewSource(seed))
	features := make([]*feature.Feature, n)
	for i := range features {
		d := make([]float64, 8)
		for j := range d {
			d[j] = rng.Float64() * 255
		}
		features[i] = feature.New(rng.Float64()*100, rng.Float64()*100, 1+rng.Float64()*4, d)
	}
	return feature.NewSet("random", nil, features)
}

// sameSplit reports whether two assignment vectors describe the same
// partition up to relabeling.
func sameSplit(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	ab := map[int]int{}
	ba := map[int]int{}
	for i := range a {
		if x, ok := ab[a[i]]; ok && x != b[i] {
			return false
		}
		if y, ok := ba[b[i]]; ok && y != a[i] {
			return false
		}
		ab[a[i]] = b[i]
		ba[b[i]] = a[i]
	}
	return true
}

type countingSampler struct {
	calls atomic.Int64
}

func (s *countingSampler) Sample(img image.Image, x, y float64) [3]float64 {
	s.calls.Add(1)
	return [3]float64{}
}

type countingSpatial struct {
	inner SpatialClusterer
	calls atomic.Int64
}

func (s *countingSpatial) Partition(features []*feature.Feature, k int, rng *rand.Rand) (Clustering, error) {
	s.calls.Add(1)
	return s.inner.Partition(features, k, rng)
}

// fixedSpatial returns a preset labeling regardless of input.
type fixedSpatial struct {
	labels []int
}

func (s fixedSpatial) Partition(features []*feature.Feature, k int, _ *rand.Rand) (Clustering, error) {
	a := newAssignment(features, k)
	if err := a.SetAssignments(s.labels); err != nil {
		return nil, err
	}
	return a, nil
}

// countingMetric counts the distances it computes.
type countingMetric struct {
	distance.SpatialDistance
	calls atomic.Int64
}

func (m *countingMetric) Distance(a, b *feature.Feature) float64 {
	m.calls.Add(1)
	return m.SpatialDistance.Distance(a, b)
}

// meteredSpatial partitions like SpatialKMeans but reports its own metric.
type meteredSpatial struct {
	*SpatialKMeans
	metric *countingMetric
}

func (s meteredSpatial) Metric() distance.Metric {
	return s.metric
}
