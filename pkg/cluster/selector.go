package cluster

import (
	"context"

	"github.com/ken/siftcluster/pkg/core/distance"
	"github.com/ken/siftcluster/pkg/validity"
)

// metricSource is implemented by spatial clusterers that expose the
// positional metric they partition under.
type metricSource interface {
	Metric() distance.Metric
}

// Best returns the configuration with the highest validity score, computed
// under the spatial clusterer's metric (Euclidean position distance when it
// exposes none). A result that was not searched holds a single
// configuration, which is returned without scoring.
func (c *Clusterer) Best(ctx context.Context, result *Result) (Configuration, error) {
	if result == nil || len(result.Configurations) == 0 {
		return Configuration{}, ErrNoConfigurations
	}
	if !result.Searched {
		return result.Configurations[0], nil
	}

	partitions := make([]validity.Partition, len(result.Configurations))
	for i, cfg := range result.Configurations {
		partitions[i] = cfg.Partition()
	}

	best, score, err := validity.FindBest(c.set.Features, partitions, c.selectionMetric(), c.opts.Index)
	if err != nil {
		return Configuration{}, err
	}

	chosen := result.Configurations[best]
	c.opts.Logger.WithSearch(result.ID).LogSelection(ctx, c.opts.Index.Name(), chosen.K, chosen.Repetition, score)
	return chosen, nil
}

func (c *Clusterer) selectionMetric() distance.Metric {
	if src, ok := c.opts.Spatial.(metricSource); ok {
		return src.Metric()
	}
	return &distance.SpatialDistance{}
}
