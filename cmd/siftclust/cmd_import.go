package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ken/siftcluster/internal/config"
	"github.com/ken/siftcluster/pkg/cluster"
	"github.com/ken/siftcluster/pkg/core/feature"
	"github.com/ken/siftcluster/pkg/storage"
)

// Leading columns of a feature row; descriptor values follow
const headerColumns = 4

var errMalformedRow = errors.New("malformed feature row")

func importCmd() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <name> <csv>",
		Short: "Store a feature set read from CSV rows x,y,scale,orientation,d0,...",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[1], err)
			}
			defer f.Close()

			features, err := readFeatures(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			err = store.Insert(args[0], features)
			if errors.Is(err, storage.ErrSetAlreadyExists) && replace {
				err = store.Update(args[0], features)
			}
			if err != nil {
				return fmt.Errorf("failed to store %q: %w", args[0], err)
			}

			logger.Info("feature set imported", "set", args[0], "features", len(features))
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d features into %q\n", len(features), args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite an existing set with the same name")
	return cmd
}

// readFeatures parses one feature per row. Blank lines and lines starting
// with '#' are skipped; every row must carry the same descriptor length.
// Errors name the file line of the offending row.
func readFeatures(r io.Reader) ([]*feature.Feature, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var features []*feature.Feature
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		f, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(features) > 0 && f.Dimension() != features[0].Dimension() {
			return nil, fmt.Errorf("line %d: %w: got %d, want %d",
				line, feature.ErrInvalidDimension, f.Dimension(), features[0].Dimension())
		}
		features = append(features, f)
	}

	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no features", errMalformedRow)
	}
	return features, nil
}

func parseRow(record []string) (*feature.Feature, error) {
	if len(record) <= headerColumns {
		return nil, fmt.Errorf("%w: need at least %d columns, got %d", errMalformedRow, headerColumns+1, len(record))
	}

	values := make([]float64, len(record))
	for i, field := range record {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %d: %v", errMalformedRow, i, err)
		}
		values[i] = v
	}

	f := feature.New(values[0], values[1], values[2], values[headerColumns:])
	f.Orientation = values[3]
	return f, nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored feature sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.Count()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if count == 0 {
				fmt.Fprintln(out, "No feature sets stored")
				return nil
			}

			names, err := store.List()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d feature sets\n", count)
			for _, name := range names {
				features, err := store.Get(name)
				if err != nil {
					return err
				}
				dim := 0
				if len(features) > 0 {
					dim = features[0].Dimension()
				}
				fmt.Fprintf(out, "%s\t%d features\t%d dims\n", name, len(features), dim)
			}
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <set>",
		Short: "Remove a stored feature set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(args[0]); err != nil {
				return fmt.Errorf("failed to delete %q: %w", args[0], err)
			}

			logger.Info("feature set deleted", "set", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", args[0])
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "params",
		Short: "Describe the clustering parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptions := cluster.ParameterDescriptions()
			names := make([]string, 0, len(descriptions))
			for name := range descriptions {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", name, descriptions[name])
			}
			return nil
		},
	})

	return cmd
}
