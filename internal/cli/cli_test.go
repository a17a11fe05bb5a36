package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"litebans-web/internal/model"
	"litebans-web/internal/pagination"
	"litebans-web/internal/player"
	"litebans-web/internal/records"
)

type fakeRecords struct {
	got records.Query
}

func (f *fakeRecords) List(ctx context.Context, q records.Query) (pagination.Page[model.EnrichedRecord], error) {
	f.got = q
	var items []model.EnrichedRecord
	for i := int64(1); i <= 3; i++ {
		reason := fmt.Sprintf("reason %d", i)
		items = append(items, model.EnrichedRecord{
			PunishmentRecord: model.PunishmentRecord{ID: i, Reason: &reason, Time: 1700000000000},
			Category:         q.Category.ID,
			Player:           &model.Player{UUID: "uuid", Username: "Notch"},
			Status:           model.StatusActive,
		})
	}
	p, err := pagination.New(q.ItemsPerPage, pagination.Items(items))
	if err != nil {
		return pagination.Page[model.EnrichedRecord]{}, err
	}
	return p.Page(ctx, q.Page)
}

type fakeStats struct{}

func (fakeStats) Refresh(context.Context) (*model.InstanceStats, error) {
	return &model.InstanceStats{
		UniquePlayers: 42,
		CategoryStats: map[string]int64{"ban": 5, "mute": 2},
		CollectedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

type fakePlayers struct{}

func (fakePlayers) Resolve(_ context.Context, ref string) (*model.Player, error) {
	if ref != "Notch" {
		return nil, fmt.Errorf("%w: %s", player.ErrNotFound, ref)
	}
	return &model.Player{UUID: "069a79f4-44e9-4726-a5be-fca90e38aaf5", Username: "Notch", AvatarURL: "https://avatars.test/Notch.png"}, nil
}

func run(t *testing.T, svc *Services, args ...string) (string, error) {
	t.Helper()
	closed := false
	svc.Close = func() error { closed = true; return nil }

	cmd := NewRootCmd(func(context.Context, zerolog.Logger) (*Services, error) { return svc, nil })
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil && !closed {
		t.Error("services were not closed")
	}
	return out.String(), err
}

func TestRecordsCommand(t *testing.T) {
	rec := &fakeRecords{}
	out, err := run(t, &Services{Records: rec}, "records", "--category", "mute", "--page", "2", "--per-page", "2", "--search", "Notch", "--order", "ASC")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if rec.got.Category.ID != "mute" || rec.got.Page != 2 || rec.got.ItemsPerPage != 2 || rec.got.Search != "Notch" || rec.got.SortOrder != "asc" {
		t.Errorf("query = %+v", rec.got)
	}
	if !strings.Contains(out, "reason 3") || strings.Contains(out, "reason 1") {
		t.Errorf("output:\n%s", out)
	}
	if !strings.Contains(out, "page 2 of 2 (3 mutes)") {
		t.Errorf("footer missing:\n%s", out)
	}
}

func TestRecordsCommandJSON(t *testing.T) {
	out, err := run(t, &Services{Records: &fakeRecords{}}, "records", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var page struct {
		Items    []model.EnrichedRecord  `json:"items"`
		Metadata pagination.PageMetadata `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(page.Items) != 3 || page.Metadata.TotalItems != 3 || page.Items[0].Category != "ban" {
		t.Errorf("page = %+v", page)
	}
}

func TestRecordsCommandErrors(t *testing.T) {
	tests := []struct {
		args []string
		want error
	}{
		{[]string{"records", "--category", "jail"}, nil},
		{[]string{"records", "--order", "sideways"}, nil},
		{[]string{"records", "--page", "9"}, pagination.ErrInvalidPage},
	}
	for _, tt := range tests {
		_, err := run(t, &Services{Records: &fakeRecords{}}, tt.args...)
		if err == nil {
			t.Errorf("%v: expected error", tt.args)
			continue
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%v: err = %v, want %v", tt.args, err, tt.want)
		}
	}
}

func TestStatsCommand(t *testing.T) {
	out, err := run(t, &Services{Stats: fakeStats{}}, "stats")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"PLAYERS     42", "bans        5", "kicks       0", "2026-03-01T12:00:00Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPlayerCommand(t *testing.T) {
	out, err := run(t, &Services{Players: fakePlayers{}}, "player", "Notch")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "069a79f4-44e9-4726-a5be-fca90e38aaf5") {
		t.Errorf("output:\n%s", out)
	}

	_, err = run(t, &Services{Players: fakePlayers{}}, "player", "Nobody")
	if err == nil || !strings.Contains(err.Error(), `"Nobody" not found`) {
		t.Errorf("err = %v", err)
	}

	if _, err := run(t, &Services{Players: fakePlayers{}}, "player"); err == nil {
		t.Error("expected an argument error")
	}
}

func TestMissingService(t *testing.T) {
	_, err := run(t, &Services{}, "stats")
	if !errors.Is(err, errNotConfigured) {
		t.Errorf("err = %v", err)
	}
}
