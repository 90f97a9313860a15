package cluster

import (
	"fmt"
	"math"

	"github.com/ken/siftcluster/internal/logging"
	"github.com/ken/siftcluster/pkg/color"
	"github.com/ken/siftcluster/pkg/validity"
)

// InitMode selects how the initial centroids are chosen.
type InitMode string

const (
	// InitSeeded seeds centroids from a spatial-only k-means pre-pass
	InitSeeded InitMode = "seeded"

	// InitRandom copies k distinct random features
	InitRandom InitMode = "random"
)

// Defaults taken over from the two-pass intra-image k-means experiments.
const (
	DefaultMinIterations  = 5
	DefaultMaxIterations  = 15
	DefaultErrorThreshold = 0.001
)

// Options configures a Clusterer.
type Options struct {
	// Alpha weighs the descriptor rank
	Alpha float64
	// Beta weighs the color-neighborhood rank
	Beta float64
	// Gamma weighs the scale rank
	Gamma float64

	MinClusters int
	MaxClusters int
	// Repetitions is the number of runs per cluster count
	Repetitions int

	Init InitMode

	// MinIterations gates every early stop; MaxIterations is the hard cap
	MinIterations  int
	MaxIterations  int
	ErrorThreshold float64

	// Seed feeds the per-run random sources; 0 picks a time-based seed
	Seed int64

	// Parallelism bounds how many runs execute at once
	Parallelism int

	Logger  *logging.Logger
	Sampler color.Sampler
	Spatial SpatialClusterer
	Index   validity.Index
}

// Option configures Clusterer construction.
type Option func(*Options)

// DefaultOptions returns a single seeded run with k=1 and unit weights.
func DefaultOptions() Options {
	return Options{
		Alpha:          1,
		Beta:           1,
		Gamma:          1,
		MinClusters:    1,
		MaxClusters:    1,
		Repetitions:    1,
		Init:           InitSeeded,
		MinIterations:  DefaultMinIterations,
		MaxIterations:  DefaultMaxIterations,
		ErrorThreshold: DefaultErrorThreshold,
		Parallelism:    1,
		Logger:         logging.NoopLogger(),
		Sampler:        color.NewAverageSampler(color.DefaultRadius),
		Spatial:        NewSpatialKMeans(),
		Index:          validity.Dunn{},
	}
}

// WithWeights sets the descriptor (alpha), color (beta) and scale (gamma) weights.
// The positional rank always has weight 1.
func WithWeights(alpha, beta, gamma float64) Option {
	return func(o *Options) {
		o.Alpha = alpha
		o.Beta = beta
		o.Gamma = gamma
	}
}

// WithClusters fixes the cluster count.
func WithClusters(k int) Option {
	return WithClusterRange(k, k)
}

// WithClusterRange searches every cluster count in [minK, maxK].
func WithClusterRange(minK, maxK int) Option {
	return func(o *Options) {
		o.MinClusters = minK
		o.MaxClusters = maxK
	}
}

// WithRepetitions sets how many runs are made per cluster count.
func WithRepetitions(n int) Option {
	return func(o *Options) {
		o.Repetitions = n
	}
}

// WithInit selects the centroid initialization strategy.
func WithInit(mode InitMode) Option {
	return func(o *Options) {
		o.Init = mode
	}
}

// WithIterations sets the minimum and maximum iteration counts of a run.
func WithIterations(minIter, maxIter int) Option {
	return func(o *Options) {
		o.MinIterations = minIter
		o.MaxIterations = maxIter
	}
}

// WithErrorThreshold sets the relative error change below which a run may stop.
func WithErrorThreshold(threshold float64) Option {
	return func(o *Options) {
		o.ErrorThreshold = threshold
	}
}

// WithSeed makes runs reproducible.
func WithSeed(seed int64) Option {
	return func(o *Options) {
		o.Seed = seed
	}
}

// WithParallelism runs up to n independent (k, repetition) runs at once.
func WithParallelism(n int) Option {
	return func(o *Options) {
		o.Parallelism = n
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *logging.Logger) Option {
	return func(o *Options) {
		if l == nil {
			l = logging.NoopLogger()
		}
		o.Logger = l
	}
}

// WithSampler replaces the color-neighborhood sampler.
func WithSampler(s color.Sampler) Option {
	return func(o *Options) {
		if s != nil {
			o.Sampler = s
		}
	}
}

// WithSpatial replaces the spatial pre-pass used by seeded initialization.
func WithSpatial(s SpatialClusterer) Option {
	return func(o *Options) {
		if s != nil {
			o.Spatial = s
		}
	}
}

// WithIndex replaces the validity index used to pick the best configuration.
func WithIndex(idx validity.Index) Option {
	return func(o *Options) {
		if idx != nil {
			o.Index = idx
		}
	}
}

// ParameterDescriptions documents the tunable parameters by name.
func ParameterDescriptions() map[string]string {
	return map[string]string{
		"alpha":       "Weight of the descriptors.",
		"beta":        "Weight of the color information.",
		"gamma":       "Weight of the scale features.",
		"minClusters": "Minimal number of clusters to try.",
		"maxClusters": "Maximal number of clusters to try.",
		"repetitions": "How many times to repeat for each K.",
		"init":        "Centroid initialization: seeded or random.",
	}
}

// validate checks the options against a feature set of size n.
func (o *Options) validate(n int) error {
	switch {
	case o.Repetitions < 1:
		return fmt.Errorf("%w: repetitions must be at least 1, got %d", ErrInvalidParameters, o.Repetitions)
	case o.MinClusters > o.MaxClusters:
		return fmt.Errorf("%w: minClusters %d exceeds maxClusters %d", ErrInvalidParameters, o.MinClusters, o.MaxClusters)
	case o.MinClusters < 1:
		return fmt.Errorf("%w: minClusters must be at least 1, got %d", ErrInvalidParameters, o.MinClusters)
	case o.MaxClusters > n:
		return fmt.Errorf("%w: maxClusters %d exceeds feature count %d", ErrInvalidParameters, o.MaxClusters, n)
	}
	return o.validateRun()
}

// validateRun checks everything a single run depends on besides k.
func (o *Options) validateRun() error {
	switch {
	case o.MinIterations < 1 || o.MaxIterations < o.MinIterations:
		return fmt.Errorf("%w: iteration bounds [%d, %d]", ErrInvalidParameters, o.MinIterations, o.MaxIterations)
	case !validWeight(o.Alpha) || !validWeight(o.Beta) || !validWeight(o.Gamma):
		return fmt.Errorf("%w: weights must be finite and non-negative", ErrInvalidParameters)
	case o.ErrorThreshold < 0 || math.IsNaN(o.ErrorThreshold):
		return fmt.Errorf("%w: error threshold %v", ErrInvalidParameters, o.ErrorThreshold)
	case o.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be at least 1, got %d", ErrInvalidParameters, o.Parallelism)
	case o.Init != InitSeeded && o.Init != InitRandom:
		return fmt.Errorf("%w: unknown init mode %q", ErrInvalidParameters, o.Init)
	}
	return nil
}

func validWeight(w float64) bool {
	return w >= 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
