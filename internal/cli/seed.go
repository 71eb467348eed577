package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okian/valetudo/internal/fixture"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Seed   int64
	Events int
	Bouts  int
	Roster int
	Out    string
}

// NewSeedCommand creates the seed command: a deterministic synthetic snapshot
// export for local runs.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a synthetic snapshot export for local runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.Out
			if out == "" {
				out = opts.cfg.SnapshotPath
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, exportDirPermission); err != nil {
					return fmt.Errorf("create snapshot dir: %w", err)
				}
			}

			g := fixture.New(
				fixture.WithSeed(opts.Seed),
				fixture.WithEvents(opts.Events),
				fixture.WithBoutsPerEvent(opts.Bouts),
				fixture.WithRosterSize(opts.Roster),
			)
			if err := g.WriteSnapshot(out); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d events to %s\n", opts.Events, out)
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "random seed; same seed, same history")
	cmd.Flags().IntVar(&opts.Events, "events", 12, "number of events")
	cmd.Flags().IntVar(&opts.Bouts, "bouts", 6, "bouts per event")
	cmd.Flags().IntVar(&opts.Roster, "roster", 40, "distinct competitors")
	cmd.Flags().StringVar(&opts.Out, "out", "", "destination file (defaults to the configured snapshot_path)")

	return cmd
}
