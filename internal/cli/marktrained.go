package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMarkTrainedCommand creates the mark-trained command, run after the
// external trainer finishes so the retrain gate measures new contests from
// this point.
func NewMarkTrainedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-trained",
		Short: "Record that the model was trained on the current history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, err := openService(rootOpts.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := svc.MarkTrained(cmd.Context())
			if err != nil {
				return fmt.Errorf("mark trained: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked trained at %d contests\n", n)
			return nil
		},
	}
}
