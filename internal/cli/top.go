package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// Default leaderboard size for the top command.
const defaultTopLimit = 20

// TopOptions holds flags for the top command.
type TopOptions struct {
	*RootOptions
	Limit int
}

// NewTopCommand creates the top command: the current leaderboard on stdout.
func NewTopCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TopOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the highest-rated competitors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Limit < 1 {
				return fmt.Errorf("invalid limit %d: must be positive", opts.Limit)
			}
			svc, store, err := openService(opts.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := svc.Top(cmd.Context(), opts.Limit)
			if err != nil {
				return fmt.Errorf("read leaderboard: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tNAME\tRATING")
			for i, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%.1f\n", i+1, e.Name, e.Rating)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", defaultTopLimit, "how many competitors to print")

	return cmd
}
