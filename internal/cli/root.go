package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"litebans-web/internal/logging"
	"litebans-web/internal/model"
	"litebans-web/internal/pagination"
	"litebans-web/internal/records"
)

type RecordLister interface {
	List(ctx context.Context, q records.Query) (pagination.Page[model.EnrichedRecord], error)
}

type StatsSource interface {
	Refresh(ctx context.Context) (*model.InstanceStats, error)
}

type PlayerResolver interface {
	Resolve(ctx context.Context, ref string) (*model.Player, error)
}

// Services are the backends the commands read from.
type Services struct {
	Records RecordLister
	Stats   StatsSource
	Players PlayerResolver
	// Close releases connections opened by Setup. May be nil.
	Close func() error
}

// Setup builds the services once flags are parsed.
type Setup func(ctx context.Context, log zerolog.Logger) (*Services, error)

type rootOptions struct {
	logLevel string
	json     bool

	log zerolog.Logger
	svc *Services
}

// NewRootCmd creates the root command of litebansctl.
func NewRootCmd(setup Setup) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "litebansctl",
		Short: "Inspect LiteBans punishment records",
		Long:  "litebansctl reads the LiteBans database directly and prints records, players and totals.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			opts.log = logging.NewWriter(cmd.ErrOrStderr(), level, "console")

			svc, err := setup(cmd.Context(), opts.log)
			if err != nil {
				return err
			}
			opts.svc = svc
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.svc == nil || opts.svc.Close == nil {
				return nil
			}
			return opts.svc.Close()
		},
		SilenceUsage: true,
	}

	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Print JSON instead of a table")

	root.AddCommand(
		newStatsCmd(opts),
		newRecordsCmd(opts),
		newPlayerCmd(opts),
	)

	return root
}

var errNotConfigured = errors.New("service not configured")

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
