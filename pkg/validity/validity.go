// Package validity scores clustering configurations so the best one can be
// picked. Higher scores are better.
package validity

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ken/siftcluster/pkg/core/distance"
	"github.com/ken/siftcluster/pkg/core/feature"
)

// ErrNoPartitions is returned by FindBest when there is nothing to compare
var ErrNoPartitions = errors.New("validity: no partitions to score")

// Partition is one assignment of features to k cluster indices.
type Partition struct {
	K           int
	Assignments []int
}

// Index is a cluster-validity index where higher means better separated,
// more compact clusters.
type Index interface {
	Name() string
	Score(features []*feature.Feature, p Partition, metric distance.Metric) float64
}

// Dunn is the ratio of the smallest inter-cluster point distance to the
// largest intra-cluster diameter. Empty clusters are ignored.
type Dunn struct{}

func (Dunn) Name() string {
	return "dunn"
}

// Score returns 0 when fewer than two clusters are populated and +Inf when
// every populated cluster has zero diameter but clusters are apart.
func (Dunn) Score(features []*feature.Feature, p Partition, metric distance.Metric) float64 {
	groups := members(p)
	if len(groups) < 2 {
		return 0
	}

	var maxDiameter float64
	for _, g := range groups {
		for i := 0; i < len(g); i++ {
			for j := i + 1; j < len(g); j++ {
				maxDiameter = math.Max(maxDiameter, metric.Distance(features[g[i]], features[g[j]]))
			}
		}
	}

	minSeparation := math.Inf(1)
	for a := 0; a < len(groups); a++ {
		for b := a + 1; b < len(groups); b++ {
			for _, i := range groups[a] {
				for _, j := range groups[b] {
					minSeparation = math.Min(minSeparation, metric.Distance(features[i], features[j]))
				}
			}
		}
	}

	if maxDiameter == 0 {
		if minSeparation == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return minSeparation / maxDiameter
}

// members groups feature indices by cluster, dropping empty and out-of-range clusters.
func members(p Partition) [][]int {
	byCluster := make([][]int, p.K)
	for i, c := range p.Assignments {
		if c < 0 || c >= p.K {
			continue
		}
		byCluster[c] = append(byCluster[c], i)
	}

	groups := byCluster[:0]
	for _, g := range byCluster {
		if len(g) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// FindBest scores every partition and returns the position and score of the
// best one. The earliest partition wins ties.
func FindBest(features []*feature.Feature, partitions []Partition, metric distance.Metric, index Index) (int, float64, error) {
	if len(partitions) == 0 {
		return -1, 0, ErrNoPartitions
	}

	scores := make([]float64, len(partitions))
	for i, p := range partitions {
		scores[i] = index.Score(features, p, metric)
	}

	best := floats.MaxIdx(scores)
	return best, scores[best], nil
}
