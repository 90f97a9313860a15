package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"os/signal"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/spf13/cobra"

	"github.com/ken/siftcluster/internal/config"
	"github.com/ken/siftcluster/pkg/cluster"
	"github.com/ken/siftcluster/pkg/core/feature"
)

func clusterCmd() *cobra.Command {
	var (
		imagePath  string
		showLabels bool
	)

	cmd := &cobra.Command{
		Use:   "cluster <set>",
		Short: "Cluster a stored feature set and print the best configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyClusterFlags(cmd, &cfg.Clustering); err != nil {
				return err
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			features, err := store.Get(args[0])
			if err != nil {
				return fmt.Errorf("feature set %q: %w", args[0], err)
			}

			var img image.Image
			if imagePath != "" {
				if img, err = loadImage(imagePath); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			best, err := clusterSet(ctx, feature.NewSet(args[0], img, features), cfg)
			if err != nil {
				return err
			}

			printConfiguration(cmd.OutOrStdout(), best, showLabels)
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "PNG, JPEG, BMP or WebP image the features were extracted from")
	cmd.Flags().BoolVar(&showLabels, "labels", false, "print the cluster label of every feature")
	cmd.Flags().Int("min-k", 0, "minimal number of clusters")
	cmd.Flags().Int("max-k", 0, "maximal number of clusters")
	cmd.Flags().Int("repetitions", 0, "runs per cluster count")
	cmd.Flags().Bool("random-init", false, "draw initial centroids at random instead of from spatial k-means")
	cmd.Flags().Float64("alpha", 0, "descriptor weight")
	cmd.Flags().Float64("beta", 0, "color weight")
	cmd.Flags().Float64("gamma", 0, "scale weight")
	cmd.Flags().Int("parallel", 0, "number of runs executed at once")
	cmd.Flags().Int64("seed", 0, "base seed for the per-run random sources")

	return cmd
}

// applyClusterFlags overrides the config with the flags set on the command line
func applyClusterFlags(cmd *cobra.Command, c *config.ClusteringConfig) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("min-k") {
		if c.MinK, err = flags.GetInt("min-k"); err != nil {
			return err
		}
	}
	if flags.Changed("max-k") {
		if c.MaxK, err = flags.GetInt("max-k"); err != nil {
			return err
		}
	}
	if flags.Changed("repetitions") {
		if c.Repetitions, err = flags.GetInt("repetitions"); err != nil {
			return err
		}
	}
	if flags.Changed("random-init") {
		random, err := flags.GetBool("random-init")
		if err != nil {
			return err
		}
		c.Init = string(cluster.InitSeeded)
		if random {
			c.Init = string(cluster.InitRandom)
		}
	}
	if flags.Changed("alpha") {
		if c.Alpha, err = flags.GetFloat64("alpha"); err != nil {
			return err
		}
	}
	if flags.Changed("beta") {
		if c.Beta, err = flags.GetFloat64("beta"); err != nil {
			return err
		}
	}
	if flags.Changed("gamma") {
		if c.Gamma, err = flags.GetFloat64("gamma"); err != nil {
			return err
		}
	}
	if flags.Changed("parallel") {
		if c.Parallelism, err = flags.GetInt("parallel"); err != nil {
			return err
		}
	}
	if flags.Changed("seed") {
		if c.Seed, err = flags.GetInt64("seed"); err != nil {
			return err
		}
	}
	return nil
}

// clusterSet searches the configured range and selects the best configuration
func clusterSet(ctx context.Context, set *feature.Set, c *config.Config) (cluster.Configuration, error) {
	opts := append(c.Options(), cluster.WithLogger(logger))
	clusterer, err := cluster.New(set, opts...)
	if err != nil {
		return cluster.Configuration{}, err
	}

	result, err := clusterer.Search(ctx)
	if err != nil {
		return cluster.Configuration{}, err
	}

	return clusterer.Best(ctx, result)
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

func printConfiguration(w io.Writer, best cluster.Configuration, showLabels bool) {
	fmt.Fprintf(w, "k=%d repetition=%d iterations=%d error=%.4f\n", best.K, best.Repetition, best.Iterations, best.Error)
	for _, cl := range best.Clusters {
		if cl.IsEmpty() {
			fmt.Fprintf(w, "  cluster %d: empty\n", cl.Index)
			continue
		}
		fmt.Fprintf(w, "  cluster %d: %d features, center (%.1f, %.1f), scale %.2f\n",
			cl.Index, len(cl.Members), cl.Centroid.X, cl.Centroid.Y, cl.Centroid.Scale)
	}
	if showLabels {
		for i, label := range best.Assignments {
			fmt.Fprintf(w, "%d\t%d\n", i, label)
		}
	}
}
