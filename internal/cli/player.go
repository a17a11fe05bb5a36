package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"litebans-web/internal/player"
)

func newPlayerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "player <name|uuid>",
		Short: "Resolve a player name or UUID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.svc.Players == nil {
				return errNotConfigured
			}
			p, err := opts.svc.Players.Resolve(cmd.Context(), args[0])
			if errors.Is(err, player.ErrNotFound) {
				return fmt.Errorf("player %q not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("resolve %q: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, p)
			}
			fmt.Fprintf(out, "UUID      %s\n", p.UUID)
			fmt.Fprintf(out, "USERNAME  %s\n", p.Username)
			fmt.Fprintf(out, "AVATAR    %s\n", p.AvatarURL)
			return nil
		},
	}
}
