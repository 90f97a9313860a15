package cluster

import (
	"math"
	"math/rand"
	"sort"

	"github.com/ken/siftcluster/pkg/core/distance"
	"github.com/ken/siftcluster/pkg/core/feature"
)

// Assignment criteria, in the order their ranks are kept.
const (
	critColor = iota
	critXY
	critDesc
	critScale
	numCriteria
)

// criterionMetrics measures the feature-to-centroid criteria. Color is
// measured against cluster mean colors instead and has no entry.
var criterionMetrics = [numCriteria]distance.Metric{
	// Squared, the root does not change the ordering.
	critXY:   mustMetric(distance.SquaredSpatial),
	critDesc: mustMetric(distance.Descriptor),
	// Signed difference, not magnitude.
	critScale: mustMetric(distance.Scale),
}

func mustMetric(t distance.MetricType) distance.Metric {
	m, err := distance.GetMetric(t)
	if err != nil {
		panic(err)
	}
	return m
}

// runState is the scratch state of one (k, repetition) run. Runs share
// nothing mutable: colors is read-only once the cache is populated.
type runState struct {
	*assignment

	opts      *Options
	colors    [][3]float64
	rng       *rand.Rand
	centroids []*feature.Feature
	score     float64 // sum of the chosen scores in the latest iteration

	// per-feature scratch, reused across features and iterations
	dists  [numCriteria][]float64
	ranks  [numCriteria][]int
	order  []int
	scores []float64
}

func newRunState(features []*feature.Feature, colors [][3]float64, k int, opts *Options, rng *rand.Rand) *runState {
	r := &runState{
		assignment: newAssignment(features, k),
		opts:       opts,
		colors:     colors,
		rng:        rng,
		score:      math.Inf(1),
		order:      make([]int, k),
		scores:     make([]float64, k),
	}
	for c := 0; c < numCriteria; c++ {
		r.dists[c] = make([]float64, k)
		r.ranks[c] = make([]int, k)
	}
	return r
}

// run clusters the features and reports whether a trivial shortcut applied.
func (r *runState) run() (bool, error) {
	n := len(r.features)
	switch r.k {
	case 1:
		for i := range r.labels {
			r.labels[i] = 0
		}
		return true, nil
	case n:
		for i := range r.labels {
			r.labels[i] = i
		}
		return true, nil
	}

	var err error
	if r.opts.Init == InitRandom {
		r.centroids = randomCentroids(r.features, r.k, r.rng)
	} else {
		r.centroids, err = seededCentroids(r.features, r.k, r.rng, r.opts.Spatial)
		if err != nil {
			return false, err
		}
	}

	r.assignNearest()
	ctl := newConvergence(r.opts)
	for {
		r.nextIteration()
		changed := r.reassign()
		r.recenter()
		if ctl.done(r.iteration, changed, r.score) {
			return false, nil
		}
	}
}

// assignNearest bootstraps the labels by position alone.
func (r *runState) assignNearest() {
	for i, f := range r.features {
		best, bestDist := 0, math.Inf(1)
		for c, cen := range r.centroids {
			if d := criterionMetrics[critXY].Distance(f, cen); d < bestDist {
				best, bestDist = c, d
			}
		}
		r.labels[i] = best
	}
}

// clusterColors averages the color neighborhoods of each cluster's members.
// Empty clusters get zeros.
func (r *runState) clusterColors() [][3]float64 {
	means := make([][3]float64, r.k)
	sizes := make([]float64, r.k)
	for i, c := range r.labels {
		sizes[c]++
		for j := 0; j < 3; j++ {
			means[c][j] += r.colors[i][j]
		}
	}
	for c := range means {
		if sizes[c] > 0 {
			for j := 0; j < 3; j++ {
				means[c][j] /= sizes[c]
			}
		}
	}
	return means
}

// reassign moves every feature to the centroid with the lowest weighted
// rank sum and reports whether any feature changed cluster.
func (r *runState) reassign() bool {
	means := r.clusterColors()
	weights := [numCriteria]float64{
		critColor: r.opts.Beta,
		critXY:    1,
		critDesc:  r.opts.Alpha,
		critScale: r.opts.Gamma,
	}

	changed := false
	r.score = 0
	for i, f := range r.features {
		for c, cen := range r.centroids {
			r.dists[critColor][c] = distance.Color(r.colors[i], means[c])
			for crit := critXY; crit < numCriteria; crit++ {
				r.dists[crit][c] = criterionMetrics[crit].Distance(f, cen)
			}
		}
		for crit := 0; crit < numCriteria; crit++ {
			rankInto(r.ranks[crit], r.dists[crit], r.order)
		}

		best := 0
		for c := range r.scores {
			s := 0.0
			for crit := 0; crit < numCriteria; crit++ {
				s += weights[crit] * float64(r.ranks[crit][c]+1)
			}
			r.scores[c] = s
			if s < r.scores[best] {
				best = c
			}
		}

		if r.labels[i] != best {
			changed = true
		}
		r.labels[i] = best
		r.score += r.scores[best]
	}
	return changed
}

// recenter replaces each centroid with its cluster mean. An empty cluster
// keeps its previous centroid.
func (r *runState) recenter() {
	for c, cl := range materialize(r.features, r.labels, r.k) {
		if cl.Centroid != nil {
			r.centroids[c] = cl.Centroid
		}
	}
}

// rankInto writes the ascending rank of each value into ranks, rank 0 being
// the smallest. Equal values share the rank of the first of them, so a
// criterion that cannot tell centroids apart favors none of them.
func rankInto(ranks []int, values []float64, order []int) {
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})
	for pos, idx := range order {
		if pos > 0 && values[idx] == values[order[pos-1]] {
			ranks[idx] = ranks[order[pos-1]]
		} else {
			ranks[idx] = pos
		}
	}
}

// configuration snapshots the run's result.
func (r *runState) configuration(repetition int) Configuration {
	score := r.score
	if math.IsInf(score, 1) {
		score = 0
	}
	return Configuration{
		K:           r.k,
		Repetition:  repetition,
		Iterations:  r.iteration,
		Error:       score,
		Assignments: r.Assignments(),
		Clusters:    r.Clusters(),
	}
}
