package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/okian/valetudo/internal/domain/model"
)

// Directory permission for export destinations.
const exportDirPermission = 0o750

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	OutPath string
}

// NewExportCommand creates the export command: the feature table as CSV for
// the external trainer.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the derived feature table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := openService(opts.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			table, err := svc.FeatureTable(cmd.Context())
			if err != nil {
				return fmt.Errorf("read feature table: %w", err)
			}
			if err := writeFeatureCSV(opts.OutPath, table); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d feature rows to %s\n", len(table), opts.OutPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.OutPath, "out", "data/features.csv", "destination CSV file")

	return cmd
}

var featureCSVHeader = []string{
	"contest_key", "label",
	"height_diff_cm", "reach_diff_in", "age_diff_years", "rating_diff",
	"red_bouts", "red_win_rate", "red_finish_rate", "red_first_round_finishes",
	"red_knockdowns_scored", "red_knockdowns_absorbed", "red_sig_strike_accuracy",
	"red_takedown_accuracy", "red_sub_attempts_per_bout", "red_control_share",
	"red_avg_opponent_rating", "red_win_streak", "red_days_since_last_bout", "red_bouts_last_year",
	"blue_bouts", "blue_win_rate", "blue_finish_rate", "blue_first_round_finishes",
	"blue_knockdowns_scored", "blue_knockdowns_absorbed", "blue_sig_strike_accuracy",
	"blue_takedown_accuracy", "blue_sub_attempts_per_bout", "blue_control_share",
	"blue_avg_opponent_rating", "blue_win_streak", "blue_days_since_last_bout", "blue_bouts_last_year",
}

// writeFeatureCSV writes the feature table in processing order. Rows labeled
// no contest stay in the file; the trainer filters labels itself.
func writeFeatureCSV(path string, table []model.FeatureVector) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, exportDirPermission); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(featureCSVHeader); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, fv := range table {
		row := append([]string{string(fv.ContestKey), string(fv.Label)},
			formatFloats(fv.HeightDiffCM, fv.ReachDiffIn, fv.AgeDiffYears, fv.RatingDiff)...)
		row = append(row, aggregateColumns(fv.Red)...)
		row = append(row, aggregateColumns(fv.Blue)...)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}

func aggregateColumns(a model.WindowAggregate) []string {
	cols := []string{strconv.Itoa(a.Bouts)}
	cols = append(cols, formatFloats(a.WinRate, a.FinishRate)...)
	cols = append(cols,
		strconv.Itoa(a.FirstRoundFinishes),
		strconv.Itoa(a.KnockdownsScored),
		strconv.Itoa(a.KnockdownsAbsorbed),
	)
	cols = append(cols, formatFloats(
		a.SigStrikeAccuracy, a.TakedownAccuracy, a.SubAttemptsPerBout,
		a.ControlShare, a.AvgOpponentRating,
	)...)
	cols = append(cols, strconv.Itoa(a.WinStreak))
	cols = append(cols, formatFloats(a.DaysSinceLastBout)...)
	cols = append(cols, strconv.Itoa(a.BoutsLastYear))
	return cols
}

func formatFloats(vals ...float64) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}
