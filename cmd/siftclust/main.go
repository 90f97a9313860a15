package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ken/siftcluster/internal/config"
	"github.com/ken/siftcluster/internal/logging"
	"github.com/ken/siftcluster/pkg/storage"
)

const (
	appName    = "siftclust"
	appVersion = "0.1.0"
)

var (
	cfgFile string
	dataDir string

	cfg    *config.Config
	logger *logging.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Cluster the SIFT features of an image",
	Long: `siftclust groups the SIFT keypoints of one image with an adapted k-means
that ranks centroids by position, descriptor, scale and the color around
each keypoint, then keeps the configuration with the best Dunn index.`,
	Version:       appVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "siftclust.yaml", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "feature store directory (overrides storage.data_dir)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(clusterCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(configCmd())
}

// initConfig loads the config file and applies the global overrides
func initConfig() error {
	loaded, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if dataDir != "" {
		loaded.Storage.DataDir = dataDir
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	cfg = loaded
	logger = cfg.Logging.Logger()
	return nil
}

func openStore() (*storage.FileStore, error) {
	store, err := storage.NewFileStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature store: %w", err)
	}
	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
