package cluster

import "math"

// convergence decides when a run stops. No early stop happens before
// minIter; maxIter always stops, even mid-oscillation.
type convergence struct {
	minIter   int
	maxIter   int
	threshold float64
	previous  float64
}

func newConvergence(o *Options) *convergence {
	return &convergence{
		minIter:   o.MinIterations,
		maxIter:   o.MaxIterations,
		threshold: o.ErrorThreshold,
		previous:  math.Inf(1),
	}
}

// done records the error of the iteration just finished and reports whether
// to stop after it.
func (c *convergence) done(iteration int, changed bool, current float64) bool {
	previous := c.previous
	c.previous = current

	switch {
	case iteration >= c.maxIter:
		return true
	case iteration < c.minIter:
		return false
	case !changed:
		return true
	}
	// A degenerate error leaves the decision to the iteration caps.
	if !acceptable(previous) || !acceptable(current) {
		return false
	}
	return math.Abs(current-previous)/math.Abs(previous) < c.threshold
}

func acceptable(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
