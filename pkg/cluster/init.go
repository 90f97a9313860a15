package cluster

import (
	"fmt"
	"math/rand"

	"github.com/ken/siftcluster/pkg/core/feature"
)

// randomCentroids copies k distinct features drawn uniformly without replacement.
func randomCentroids(features []*feature.Feature, k int, rng *rand.Rand) []*feature.Feature {
	centroids := make([]*feature.Feature, k)
	for c, i := range rng.Perm(len(features))[:k] {
		centroids[c] = features[i].Copy()
	}
	return centroids
}

// seededCentroids runs a spatial-only partition first and takes each
// non-empty cluster's mean as a centroid. Empty clusters fall back to a
// random unused feature whose descriptor differs from every centroid
// chosen before it; each feature is drawn at most once.
func seededCentroids(features []*feature.Feature, k int, rng *rand.Rand, spatial SpatialClusterer) ([]*feature.Feature, error) {
	seed, err := spatial.Partition(features, k, rng)
	if err != nil {
		return nil, err
	}
	seeds := seed.Clusters()
	if len(seeds) != k {
		return nil, fmt.Errorf("spatial pre-pass returned %d clusters, want %d", len(seeds), k)
	}

	centroids := make([]*feature.Feature, k)
	var order []int
	next := 0
	for c := range centroids {
		if !seeds[c].IsEmpty() {
			centroids[c] = seeds[c].Centroid.Copy()
			continue
		}

		if order == nil {
			order = rng.Perm(len(features))
		}
		pick := -1
		for pick < 0 && next < len(order) {
			candidate := order[next]
			next++
			if !duplicates(features[candidate], centroids[:c]) {
				pick = candidate
			}
		}
		if pick < 0 {
			return nil, fmt.Errorf("%w: cluster %d of %d", ErrInsufficientDistinct, c, k)
		}
		centroids[c] = features[pick].Copy()
	}
	return centroids, nil
}

func duplicates(f *feature.Feature, chosen []*feature.Feature) bool {
	for _, c := range chosen {
		if f.Equal(c) {
			return true
		}
	}
	return false
}
