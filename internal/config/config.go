package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ken/siftcluster/internal/logging"
	"github.com/ken/siftcluster/pkg/cluster"
	"github.com/ken/siftcluster/pkg/color"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	Clustering ClusteringConfig `yaml:"clustering"`
	Color      ColorConfig      `yaml:"color"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ClusteringConfig holds the search parameters
type ClusteringConfig struct {
	Alpha          float64 `yaml:"alpha"`
	Beta           float64 `yaml:"beta"`
	Gamma          float64 `yaml:"gamma"`
	MinK           int     `yaml:"min_k"`
	MaxK           int     `yaml:"max_k"`
	Repetitions    int     `yaml:"repetitions"`
	Init           string  `yaml:"init"`
	MinIterations  int     `yaml:"min_iterations"`
	MaxIterations  int     `yaml:"max_iterations"`
	ErrorThreshold float64 `yaml:"error_threshold"`
	Seed           int64   `yaml:"seed"`
	Parallelism    int     `yaml:"parallelism"`
}

// ColorConfig holds color sampling configuration
type ColorConfig struct {
	Radius int `yaml:"radius"`
}

// StorageConfig holds storage-related configuration
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig selects the log level and output format
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Clustering: ClusteringConfig{
			Alpha:          1,
			Beta:           1,
			Gamma:          1,
			MinK:           2,
			MaxK:           8,
			Repetitions:    3,
			Init:           string(cluster.InitSeeded),
			MinIterations:  cluster.DefaultMinIterations,
			MaxIterations:  cluster.DefaultMaxIterations,
			ErrorThreshold: cluster.DefaultErrorThreshold,
			Parallelism:    1,
		},
		Color: ColorConfig{
			Radius: color.DefaultRadius,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the settings that do not depend on the feature set.
// The K range is checked against the set size when the search starts.
func (c *Config) Validate() error {
	switch {
	case c.Color.Radius < 0:
		return fmt.Errorf("%w: color radius %d", ErrInvalidConfig, c.Color.Radius)
	case c.Storage.DataDir == "":
		return fmt.Errorf("%w: empty data_dir", ErrInvalidConfig)
	case c.Logging.Format != "text" && c.Logging.Format != "json":
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	case c.Clustering.Init != string(cluster.InitSeeded) && c.Clustering.Init != string(cluster.InitRandom):
		return fmt.Errorf("%w: unknown init mode %q", ErrInvalidConfig, c.Clustering.Init)
	case c.Clustering.MinK < 1 || c.Clustering.MaxK < c.Clustering.MinK:
		return fmt.Errorf("%w: cluster range [%d, %d]", ErrInvalidConfig, c.Clustering.MinK, c.Clustering.MaxK)
	}
	return nil
}

// Options converts the clustering section to cluster options
func (c ClusteringConfig) Options() []cluster.Option {
	return []cluster.Option{
		cluster.WithWeights(c.Alpha, c.Beta, c.Gamma),
		cluster.WithClusterRange(c.MinK, c.MaxK),
		cluster.WithRepetitions(c.Repetitions),
		cluster.WithInit(cluster.InitMode(c.Init)),
		cluster.WithIterations(c.MinIterations, c.MaxIterations),
		cluster.WithErrorThreshold(c.ErrorThreshold),
		cluster.WithSeed(c.Seed),
		cluster.WithParallelism(c.Parallelism),
	}
}

// Options returns the full option set, including the sampler radius
func (c *Config) Options() []cluster.Option {
	return append(c.Clustering.Options(), cluster.WithSampler(color.NewAverageSampler(c.Color.Radius)))
}

// Logger builds the logger described by the logging section
func (c LoggingConfig) Logger() *logging.Logger {
	level := logging.ParseLevel(c.Level)
	if c.Format == "json" {
		return logging.NewJSONLogger(level)
	}
	return logging.NewTextLogger(level)
}

// LoadConfig loads the configuration from a file
func LoadConfig(path string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	// Missing file means defaults
	_, err = os.Stat(absPath)
	if os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
