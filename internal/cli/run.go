package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/valetudo/internal/app"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Mode         string
	ForceRetrain bool
	ExportPath   string
}

// NewRunCommand creates the run command: a single synchronization pass.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one sync run against the configured snapshot",
		Long: `Execute one synchronization run: fetch the snapshot export, append new
contests, update ratings and derived features, advance the checkpoint, and
report whether the prediction model should be retrained.

Update mode appends only contests past the checkpoint. Rebuild mode replays
the full stored history from scratch, which also picks up backfilled
contests that predate the checkpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "update", "run mode (update|rebuild)")
	cmd.Flags().BoolVar(&opts.ForceRetrain, "force-retrain", false, "recommend retraining regardless of thresholds")
	cmd.Flags().StringVar(&opts.ExportPath, "export", "data/features.csv", "feature table export written when retraining is due")

	return cmd
}

func runOnce(cmd *cobra.Command, opts *RunOptions) error {
	mode, err := parseMode(opts.Mode)
	if err != nil {
		return err
	}

	svc, store, err := openService(opts.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := svc.Run(cmd.Context(), service.RunOptions{Mode: mode, ForceRetrain: opts.ForceRetrain})
	if err != nil {
		return fmt.Errorf("sync run: %w", err)
	}

	if res.Retrain != nil && res.Retrain.Retrain {
		table, err := svc.FeatureTable(cmd.Context())
		if err != nil {
			return fmt.Errorf("read feature table: %w", err)
		}
		if err := writeFeatureCSV(opts.ExportPath, table); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func parseMode(s string) (service.Mode, error) {
	switch s {
	case "update":
		return service.ModeUpdate, nil
	case "rebuild":
		return service.ModeRebuild, nil
	}
	return "", fmt.Errorf("invalid mode %q: must be update or rebuild", s)
}
