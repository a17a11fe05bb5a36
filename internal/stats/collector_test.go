package stats

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"litebans-web/internal/model"
	"litebans-web/internal/repository"
)

type fakeSource struct {
	refreshes atomic.Int32
	err       error
}

func (f *fakeSource) Count(_ context.Context, cat model.Category, _ repository.Filter) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(cat.ID)), nil
}

func (f *fakeSource) UniquePlayers(context.Context) (int64, error) {
	f.refreshes.Add(1)
	return 1234, nil
}

func TestSnapshotCollectsOnDemand(t *testing.T) {
	src := &fakeSource{}
	c := NewCollector(src, time.Hour, zerolog.Nop())
	ctx := context.Background()

	s, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.UniquePlayers != 1234 {
		t.Errorf("players = %d", s.UniquePlayers)
	}
	want := map[string]int64{"ban": 3, "mute": 4, "warning": 7, "kick": 4}
	for k, v := range want {
		if s.CategoryStats[k] != v {
			t.Errorf("%s = %d, want %d", k, s.CategoryStats[k], v)
		}
	}

	if _, err := c.Snapshot(ctx); err != nil {
		t.Fatal(err)
	}
	if src.refreshes.Load() != 1 {
		t.Errorf("refreshes = %d, want 1", src.refreshes.Load())
	}
}

func TestStartCollectsPeriodically(t *testing.T) {
	src := &fakeSource{}
	c := NewCollector(src, 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Start(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for src.refreshes.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d collections", src.refreshes.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRefreshError(t *testing.T) {
	c := NewCollector(&fakeSource{err: errors.New("db down")}, time.Hour, zerolog.Nop())
	if _, err := c.Snapshot(context.Background()); err == nil {
		t.Error("expected error")
	}
}
