package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"litebans-web/internal/model"
	"litebans-web/internal/repository"
)

type Source interface {
	Count(ctx context.Context, cat model.Category, f repository.Filter) (int64, error)
	UniquePlayers(ctx context.Context) (int64, error)
}

// Collector periodically counts players and punishments so that summary
// requests do not scan the punishment tables.
type Collector struct {
	src      Source
	interval time.Duration
	log      zerolog.Logger

	mu       sync.RWMutex
	snapshot *model.InstanceStats
}

func NewCollector(src Source, interval time.Duration, log zerolog.Logger) *Collector {
	return &Collector{
		src:      src,
		interval: interval,
		log:      log.With().Str("component", "stats_collector").Logger(),
	}
}

// Start collects once immediately and then every interval until ctx ends.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		c.collect(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.collect(ctx)
			}
		}
	}()
}

func (c *Collector) collect(ctx context.Context) {
	if _, err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		c.log.Error().Err(err).Msg("failed to collect stats")
	}
}

func (c *Collector) Refresh(ctx context.Context) (*model.InstanceStats, error) {
	players, err := c.src.UniquePlayers(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, cat := range model.Categories() {
		n, err := c.src.Count(ctx, cat, repository.Filter{})
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", cat.ID, err)
		}
		counts[cat.ID] = n
	}

	s := &model.InstanceStats{
		UniquePlayers: players,
		CategoryStats: counts,
		CollectedAt:   time.Now().UTC(),
	}
	c.mu.Lock()
	c.snapshot = s
	c.mu.Unlock()

	c.log.Debug().Int64("players", players).Msg("stats collected")
	return s, nil
}

// Snapshot returns the latest collected stats, collecting synchronously when
// nothing has been collected yet.
func (c *Collector) Snapshot(ctx context.Context) (*model.InstanceStats, error) {
	c.mu.RLock()
	s := c.snapshot
	c.mu.RUnlock()
	if s != nil {
		return s, nil
	}
	return c.Refresh(ctx)
}
