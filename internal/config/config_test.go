package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ken/siftcluster/pkg/cluster"
	"github.com/ken/siftcluster/pkg/core/feature"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "siftclust.yaml")

	cfg := DefaultConfig()
	cfg.Clustering.Alpha = 0.5
	cfg.Clustering.MaxK = 12
	cfg.Clustering.Init = string(cluster.InitRandom)
	cfg.Logging.Format = "json"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clustering:\n  max_k: 4\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Clustering.MaxK)
	assert.Equal(t, DefaultConfig().Clustering.MinK, cfg.Clustering.MinK)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clustering: [unclosed"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"negative radius": func(c *Config) { c.Color.Radius = -1 },
		"no data dir":     func(c *Config) { c.Storage.DataDir = "" },
		"bad format":      func(c *Config) { c.Logging.Format = "xml" },
		"bad init":        func(c *Config) { c.Clustering.Init = "kmeans++" },
		"inverted range":  func(c *Config) { c.Clustering.MinK, c.Clustering.MaxK = 5, 2 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestOptionsReachClusterer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clustering.Alpha = 2
	cfg.Clustering.MinK = 2
	cfg.Clustering.MaxK = 3
	cfg.Clustering.Repetitions = 2
	cfg.Clustering.Init = string(cluster.InitRandom)
	cfg.Clustering.Seed = 42
	cfg.Clustering.Parallelism = 2

	set := feature.NewSet("cfg", nil, []*feature.Feature{
		feature.New(0, 0, 1, []float64{1}),
		feature.New(1, 0, 1, []float64{2}),
		feature.New(9, 9, 1, []float64{3}),
		feature.New(10, 9, 1, []float64{4}),
	})
	c, err := cluster.New(set, append(cfg.Options(), cluster.WithLogger(cfg.Logging.Logger()))...)
	require.NoError(t, err)

	opts := c.Options()
	assert.Equal(t, 2.0, opts.Alpha)
	assert.Equal(t, 3, opts.MaxClusters)
	assert.Equal(t, cluster.InitRandom, opts.Init)
	assert.Equal(t, int64(42), opts.Seed)

	result, err := c.Search(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Configurations, 4)
}
