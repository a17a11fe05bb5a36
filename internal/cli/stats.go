package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"litebans-web/internal/model"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show player and punishment totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.svc.Stats == nil {
				return errNotConfigured
			}
			s, err := opts.svc.Stats.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("collect stats: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, s)
			}

			fmt.Fprintf(out, "%-10s  %d\n", "PLAYERS", s.UniquePlayers)
			for _, cat := range model.Categories() {
				fmt.Fprintf(out, "%-10s  %d\n", cat.Table, s.CategoryStats[cat.ID])
			}
			fmt.Fprintf(out, "\ncollected %s\n", s.CollectedAt.Format(time.RFC3339))
			return nil
		},
	}
}
