package locsetupcli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phillip-england/locsetup/internal/csvimport"
	"github.com/phillip-england/locsetup/internal/logger"
	"github.com/phillip-england/locsetup/internal/report"
	"github.com/phillip-england/locsetup/internal/tasks"
	"github.com/spf13/cobra"
)

func buildFile(ctx context.Context, path string, features tasks.FeatureSet, log logger.Logger) (tasks.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tasks.Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	if !csvimport.IsCSV(filepath.Base(path), "", data[:min(len(data), csvimport.SniffLen)]) {
		return tasks.Result{}, fmt.Errorf("%s is not a csv file", path)
	}
	table, err := csvimport.ParseBytes(data)
	if err != nil {
		return tasks.Result{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return tasks.Build(logger.ContextWithLogger(ctx, log), table, features)
}

func parseFeatures(raw []string) (tasks.FeatureSet, error) {
	var set tasks.FeatureSet
	for _, name := range raw {
		f, err := tasks.ParseFeature(name)
		if err != nil {
			return 0, err
		}
		set = set.With(f)
	}
	return set, nil
}

// snapshotFor builds path into a throwaway store so the output matches what the web page
// would hold after the same upload and toggles.
func (a *app) snapshotFor(cmd *cobra.Command, path string, featureNames []string) (tasks.Snapshot, error) {
	features, err := parseFeatures(featureNames)
	if err != nil {
		return tasks.Snapshot{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	_, log, err := a.load(cmd)
	if err != nil {
		return tasks.Snapshot{}, err
	}
	result, err := buildFile(cmd.Context(), path, features, log)
	if err != nil {
		return tasks.Snapshot{}, err
	}
	store := tasks.NewStore()
	for _, f := range features.Enabled() {
		store.ToggleFeature(f)
	}
	return store.Replace(filepath.Base(path), result), nil
}

func (a *app) newPreviewCommand() *cobra.Command {
	var (
		featureNames []string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "preview <csv>",
		Short: "Print the task tree for a CSV",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshotFor(cmd, args[0], featureNames)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Fprintln(a.stdout, report.RenderTree(snap))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&featureNames, "feature", "f", nil, "enable a feature setup (Posts, Resources, Messages, Forms)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func (a *app) newExportCommand() *cobra.Command {
	var (
		featureNames []string
		out          string
	)
	cmd := &cobra.Command{
		Use:   "export <csv>",
		Short: "Write the tasks for a CSV to an xlsx workbook",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshotFor(cmd, args[0], featureNames)
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := report.WriteWorkbook(f, snap); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			fmt.Fprintf(a.stdout, "wrote %d tasks to %s\n", len(snap.Tasks), out)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&featureNames, "feature", "f", nil, "enable a feature setup (Posts, Resources, Messages, Forms)")
	cmd.Flags().StringVarP(&out, "out", "o", "tasks.xlsx", "output workbook path")
	return cmd
}
