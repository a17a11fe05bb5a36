package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"litebans-web/internal/cli"
	"litebans-web/internal/config"
	"litebans-web/internal/database"
	"litebans-web/internal/player"
	"litebans-web/internal/records"
	"litebans-web/internal/repository"
	"litebans-web/internal/stats"
)

func main() {
	if err := cli.NewRootCmd(setup).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx context.Context, log zerolog.Logger) (*cli.Services, error) {
	cfg, err := config.LoadTools()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	repo := repository.NewRecords(db, cfg.TablePrefix)
	resolver := player.NewResolver(
		player.NewHTTPLookup(cfg.ProfileAPIURL, cfg.ProfileTimeout),
		player.NewCache(cfg.PlayerCacheTTL, cfg.PlayerCacheSweep),
		player.ResolverOptions{
			Avatars:       player.Avatars{BaseURL: cfg.ProfileAPIURL},
			Names:         repo,
			LookupTimeout: cfg.ProfileTimeout,
			Logger:        log,
		},
	)

	return &cli.Services{
		Records: records.NewService(repo, resolver, log),
		Stats:   stats.NewCollector(repo, cfg.StatsInterval, log),
		Players: resolver,
		Close:   sqlDB.Close,
	}, nil
}
