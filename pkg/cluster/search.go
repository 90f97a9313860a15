package cluster

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ken/siftcluster/internal/logging"
	"github.com/ken/siftcluster/pkg/color"
	"github.com/ken/siftcluster/pkg/core/feature"
)

// Result holds every configuration produced by one Search.
type Result struct {
	// ID correlates the log lines of one search
	ID string
	// Configurations are ordered by (k - minK) * repetitions + repetition
	Configurations []Configuration
	// Searched is false when a single run replaced the search
	Searched bool
}

// Clusterer clusters the features of one image. Its color cache lives as
// long as the Clusterer; build a new one for a new image.
type Clusterer struct {
	set   *feature.Set
	opts  Options
	cache *color.Cache

	mu   sync.Mutex
	last *Result
}

// New creates a Clusterer for a feature set.
func New(set *feature.Set, opts ...Option) (*Clusterer, error) {
	if set == nil || set.Len() == 0 {
		return nil, ErrEmptyFeatureSet
	}
	if _, err := set.Dimension(); err != nil {
		return nil, fmt.Errorf("feature set %q: %w", set.Name, err)
	}

	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	return &Clusterer{
		set:   set,
		opts:  o,
		cache: color.NewCache(o.Sampler),
	}, nil
}

// Options returns the effective options.
func (c *Clusterer) Options() Options {
	return c.opts
}

// Search runs every (k, repetition) pair in the configured range. When the
// range is a single k with one repetition it runs once and the result is
// not marked as searched. Parameters are validated before any run starts.
func (c *Clusterer) Search(ctx context.Context) (*Result, error) {
	n := c.set.Len()
	if err := c.opts.validate(n); err != nil {
		return nil, err
	}

	result := &Result{ID: uuid.NewString()}
	log := c.opts.Logger.WithSearch(result.ID)

	colors, err := c.cache.Get(c.set.Image, c.set.Features)
	if err != nil {
		return nil, err
	}

	minK, maxK, reps := c.opts.MinClusters, c.opts.MaxClusters, c.opts.Repetitions
	base := c.baseSeed()

	if minK == maxK && reps == 1 {
		cfg, err := c.run(ctx, log, colors, minK, 0, base)
		if err != nil {
			log.LogSearch(ctx, n, 0, err)
			return nil, err
		}
		result.Configurations = []Configuration{cfg}
		c.remember(result)
		log.LogSearch(ctx, n, 1, nil)
		return result, nil
	}

	configs := make([]Configuration, (maxK-minK+1)*reps)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Parallelism)
	for k := minK; k <= maxK; k++ {
		for rep := 0; rep < reps; rep++ {
			k, rep := k, rep
			idx := (k-minK)*reps + rep
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				cfg, err := c.run(gctx, log, colors, k, rep, base+int64(idx))
				if err != nil {
					return err
				}
				configs[idx] = cfg
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		log.LogSearch(ctx, n, 0, err)
		return nil, err
	}

	result.Configurations = configs
	result.Searched = true
	c.remember(result)
	log.LogSearch(ctx, n, len(configs), nil)
	return result, nil
}

// Run performs a single run for a fixed k, outside of any search.
func (c *Clusterer) Run(ctx context.Context, k int) (Configuration, error) {
	if k < 1 || k > c.set.Len() {
		return Configuration{}, fmt.Errorf("%w: k=%d for %d features", ErrInvalidParameters, k, c.set.Len())
	}
	if err := c.opts.validateRun(); err != nil {
		return Configuration{}, err
	}

	colors, err := c.cache.Get(c.set.Image, c.set.Features)
	if err != nil {
		return Configuration{}, err
	}
	cfg, err := c.run(ctx, c.opts.Logger, colors, k, 0, c.baseSeed())
	if err != nil {
		return Configuration{}, err
	}
	c.remember(&Result{ID: uuid.NewString(), Configurations: []Configuration{cfg}})
	return cfg, nil
}

// Configurations returns the configurations of the latest Search or Run,
// or nil if none has completed. A Run yields a single configuration.
func (c *Clusterer) Configurations() []Configuration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	return c.last.Configurations
}

func (c *Clusterer) run(ctx context.Context, log *logging.Logger, colors [][3]float64, k, rep int, seed int64) (Configuration, error) {
	state := newRunState(c.set.Features, colors, k, &c.opts, rand.New(rand.NewSource(seed)))
	trivial, err := state.run()

	log.WithRun(k, rep).LogRun(ctx, state.iteration, state.score, trivial, err)
	if err != nil {
		return Configuration{}, fmt.Errorf("k=%d repetition=%d: %w", k, rep, err)
	}
	return state.configuration(rep), nil
}

func (c *Clusterer) baseSeed() int64 {
	if c.opts.Seed != 0 {
		return c.opts.Seed
	}
	return time.Now().UnixNano()
}

func (c *Clusterer) remember(r *Result) {
	c.mu.Lock()
	c.last = r
	c.mu.Unlock()
}
