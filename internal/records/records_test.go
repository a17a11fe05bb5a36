package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"litebans-web/internal/model"
	"litebans-web/internal/pagination"
	"litebans-web/internal/repository"
)

const (
	uuidA = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	uuidB = "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb"
	uuidS = "cccccccc-cccc-4ccc-8ccc-cccccccccccc"
)

func str(s string) *string { return &s }

type fakeResolver struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
	names map[string]string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{calls: map[string]int{}, fail: map[string]bool{}, names: map[string]string{}}
}

func (f *fakeResolver) Resolve(_ context.Context, ref string) (*model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[ref]++
	if f.fail[ref] {
		return nil, errors.New("lookup failed")
	}
	if uuid, ok := f.names[ref]; ok {
		return &model.Player{UUID: uuid, Username: ref}, nil
	}
	return &model.Player{UUID: ref, Username: "user-" + ref[:4], AvatarURL: "head/" + ref}, nil
}

func (f *fakeResolver) Fallback(ref string) *model.Player {
	return &model.Player{UUID: ref, AvatarURL: "steve"}
}

func (f *fakeResolver) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeRepo struct {
	recs      []model.PunishmentRecord
	err       error
	listCalls []pagination.Window
	lastQuery repository.Filter
}

func (r *fakeRepo) match(f repository.Filter) []model.PunishmentRecord {
	var out []model.PunishmentRecord
	for _, rec := range r.recs {
		if f.Subject == "" || rec.SubjectUUID() == f.Subject || rec.IssuerUUID() == f.Subject {
			out = append(out, rec)
		}
	}
	return out
}

func (r *fakeRepo) Count(_ context.Context, _ model.Category, f repository.Filter) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.lastQuery = f
	return int64(len(r.match(f))), nil
}

func (r *fakeRepo) List(_ context.Context, _ model.Category, f repository.Filter, offset, limit int) ([]model.PunishmentRecord, error) {
	r.listCalls = append(r.listCalls, pagination.Window{Start: offset, End: offset + limit})
	all := r.match(f)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (r *fakeRepo) Get(_ context.Context, _ model.Category, id int64) (*model.PunishmentRecord, error) {
	for _, rec := range r.recs {
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRepo) ListSince(_ context.Context, _ model.Category, afterID int64, limit int) ([]model.PunishmentRecord, error) {
	var out []model.PunishmentRecord
	for _, rec := range r.recs {
		if rec.ID > afterID && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func makeRecords(n int) []model.PunishmentRecord {
	out := make([]model.PunishmentRecord, n)
	for i := range out {
		subject := uuidA
		if i%2 == 1 {
			subject = uuidB
		}
		out[i] = model.PunishmentRecord{
			ID:           int64(i + 1),
			UUID:         str(subject),
			BannedByUUID: str(uuidS),
			Reason:       str(fmt.Sprintf("r%d", i)),
			Until:        -1,
			Active:       true,
		}
	}
	return out
}

func TestEnrichDeduplicatesLookups(t *testing.T) {
	res := newFakeResolver()
	e := NewEnricher(res, zerolog.Nop())

	recs := []model.PunishmentRecord{
		{ID: 1, UUID: str(uuidA)},
		{ID: 2, UUID: str(uuidA)},
		{ID: 3, UUID: str(uuidB)},
	}
	out, err := e.Enrich(context.Background(), "ban", recs)
	if err != nil {
		t.Fatal(err)
	}
	if n := res.totalCalls(); n != 2 {
		t.Errorf("lookups = %d, want 2", n)
	}
	if out[0].Player != out[1].Player {
		t.Error("records of the same subject should share the resolved profile")
	}
	if out[2].Player.UUID != uuidB {
		t.Errorf("record 3 player = %+v", out[2].Player)
	}
	for _, r := range out {
		if r.Staff != nil {
			t.Errorf("record %d has staff without issuer", r.ID)
		}
		if r.Category != "ban" {
			t.Errorf("category = %q", r.Category)
		}
	}
}

func TestEnrichSubjectAndIssuerShareLookups(t *testing.T) {
	res := newFakeResolver()
	e := NewEnricher(res, zerolog.Nop())

	recs := []model.PunishmentRecord{
		{ID: 1, UUID: str(uuidA), BannedByUUID: str(uuidB)},
		{ID: 2, UUID: str(uuidB), BannedByUUID: str(uuidA)},
		{ID: 3, UUID: str(uuidA), BannedByUUID: str(model.Console)},
	}
	out, err := e.Enrich(context.Background(), "mute", recs)
	if err != nil {
		t.Fatal(err)
	}
	if n := res.totalCalls(); n != 3 {
		t.Errorf("lookups = %d, want 3 (A, B, CONSOLE)", n)
	}
	if out[0].Staff.UUID != uuidB || out[1].Staff.UUID != uuidA {
		t.Error("staff profiles not attached")
	}
}

func TestEnrichDegradesFailedIdentity(t *testing.T) {
	res := newFakeResolver()
	res.fail[uuidB] = true
	e := NewEnricher(res, zerolog.Nop())

	out, err := e.Enrich(context.Background(), "ban", []model.PunishmentRecord{
		{ID: 1, UUID: str(uuidA)},
		{ID: 2, UUID: str(uuidB)},
	})
	if err != nil {
		t.Fatalf("partial failure must not fail the batch: %v", err)
	}
	if out[0].Player.Username == "" {
		t.Error("resolved identity lost its profile")
	}
	if out[1].Player == nil || out[1].Player.AvatarURL != "steve" {
		t.Errorf("failed identity = %+v, want fallback", out[1].Player)
	}
}

func TestEnrichDerivedFields(t *testing.T) {
	e := NewEnricher(newFakeResolver(), zerolog.Nop())
	now := time.UnixMilli(5_000_000)
	e.now = func() time.Time { return now }

	out, err := e.Enrich(context.Background(), "ban", []model.PunishmentRecord{
		{ID: 1, UUID: str(uuidA), Until: 0, Active: true},
		{ID: 2, UUID: str(uuidA), Until: -1, Active: true},
		{ID: 3, UUID: str(uuidA), Until: now.UnixMilli() - 1, Active: true},
		{ID: 4, UUID: str(uuidA), Until: now.UnixMilli() + 1, Active: false, RemovedByName: str("Mod")},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		permanent bool
		status    model.Status
	}{
		{true, model.StatusActive},
		{true, model.StatusActive},
		{false, model.StatusExpired},
		{false, model.StatusRemoved},
	}
	for i, w := range want {
		if out[i].Permanent != w.permanent || out[i].Status != w.status {
			t.Errorf("record %d: permanent=%v status=%s, want %v %s", out[i].ID, out[i].Permanent, out[i].Status, w.permanent, w.status)
		}
	}
}

func TestEnrichCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewEnricher(newFakeResolver(), zerolog.Nop())
	if _, err := e.Enrich(ctx, "ban", makeRecords(3)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestServiceListPages(t *testing.T) {
	repo := &fakeRepo{recs: makeRecords(23)}
	svc := NewService(repo, newFakeResolver(), zerolog.Nop())
	ban, _ := model.LookupCategory("ban")
	ctx := context.Background()

	var sizes []int
	for p := 1; p <= 3; p++ {
		page, err := svc.List(ctx, Query{Category: ban, Page: p, ItemsPerPage: 10})
		if err != nil {
			t.Fatalf("page %d: %v", p, err)
		}
		sizes = append(sizes, len(page.Items))
		if page.Metadata.TotalPages != 3 || page.Metadata.TotalItems != 23 {
			t.Errorf("page %d metadata = %+v", p, page.Metadata)
		}
	}
	if fmt.Sprint(sizes) != "[10 10 3]" {
		t.Errorf("page sizes = %v", sizes)
	}

	want := []pagination.Window{{Start: 0, End: 10}, {Start: 10, End: 20}, {Start: 20, End: 30}}
	if fmt.Sprint(repo.listCalls) != fmt.Sprint(want) {
		t.Errorf("windows = %v, want %v", repo.listCalls, want)
	}

	for _, bad := range []int{0, 4} {
		if _, err := svc.List(ctx, Query{Category: ban, Page: bad, ItemsPerPage: 10}); !errors.Is(err, pagination.ErrInvalidPage) {
			t.Errorf("page %d: err = %v, want ErrInvalidPage", bad, err)
		}
	}
}

func TestServiceListEmpty(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, newFakeResolver(), zerolog.Nop())
	kick, _ := model.LookupCategory("kick")

	page, err := svc.List(context.Background(), Query{Category: kick, Page: 7, ItemsPerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 0 || page.Metadata.TotalPages != 0 || page.Metadata.Page != 7 {
		t.Errorf("empty page = %+v", page)
	}
	if len(repo.listCalls) != 0 {
		t.Error("empty category should not be listed")
	}
}

func TestServiceListRejectsInvalidSortBeforeCounting(t *testing.T) {
	kick, _ := model.LookupCategory("kick")
	for _, q := range []Query{
		{Category: kick, Page: 1, ItemsPerPage: 10, SortBy: "bogus"},
		{Category: kick, Page: 1, ItemsPerPage: 10, SortBy: "removedByDate"},
	} {
		repo := &fakeRepo{}
		svc := NewService(repo, newFakeResolver(), zerolog.Nop())
		_, err := svc.List(context.Background(), q)
		if !errors.Is(err, repository.ErrInvalidSort) {
			t.Errorf("sortBy=%s on an empty category: err = %v, want ErrInvalidSort", q.SortBy, err)
		}
		if repo.lastQuery != (repository.Filter{}) || len(repo.listCalls) != 0 {
			t.Errorf("sortBy=%s: repository queried before validation", q.SortBy)
		}
	}
}

func TestServiceSearchResolvesNames(t *testing.T) {
	repo := &fakeRepo{recs: makeRecords(6)}
	res := newFakeResolver()
	res.names["Bobby"] = uuidB
	svc := NewService(repo, res, zerolog.Nop())
	ban, _ := model.LookupCategory("ban")
	ctx := context.Background()

	page, err := svc.List(ctx, Query{Category: ban, Page: 1, ItemsPerPage: 10, Search: "Bobby"})
	if err != nil {
		t.Fatal(err)
	}
	if repo.lastQuery.Subject != uuidB || len(page.Items) != 3 {
		t.Errorf("subject = %q, items = %d", repo.lastQuery.Subject, len(page.Items))
	}

	if _, err := svc.List(ctx, Query{Category: ban, Page: 1, ItemsPerPage: 10, Search: "CCCCCCCC-CCCC-4CCC-8CCC-CCCCCCCCCCCC"}); err != nil {
		t.Fatal(err)
	}
	if repo.lastQuery.Subject != uuidS {
		t.Errorf("uuid search not normalized: %q", repo.lastQuery.Subject)
	}
}

func TestServicePropagatesConnectionReset(t *testing.T) {
	repo := &fakeRepo{err: fmt.Errorf("count ban: %w", repository.ErrConnectionReset)}
	svc := NewService(repo, newFakeResolver(), zerolog.Nop())
	ban, _ := model.LookupCategory("ban")

	if _, err := svc.List(context.Background(), Query{Category: ban, Page: 1, ItemsPerPage: 10}); !errors.Is(err, repository.ErrConnectionReset) {
		t.Errorf("err = %v, want ErrConnectionReset", err)
	}
}

func TestServiceGetAndSince(t *testing.T) {
	repo := &fakeRepo{recs: makeRecords(5)}
	svc := NewService(repo, newFakeResolver(), zerolog.Nop())
	warn, _ := model.LookupCategory("warning")
	ctx := context.Background()

	rec, err := svc.Get(ctx, warn, 2)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Player.UUID != uuidB || rec.Staff.UUID != uuidS || rec.Category != "warning" {
		t.Errorf("record = %+v", rec)
	}
	if _, err := svc.Get(ctx, warn, 99); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	newer, err := svc.Since(ctx, warn, 3, 10)
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]int, len(newer))
	for i, r := range newer {
		ids[i] = int(r.ID)
	}
	sort.Ints(ids)
	if fmt.Sprint(ids) != "[4 5]" {
		t.Errorf("since ids = %v", ids)
	}
}

func TestParseSortOrder(t *testing.T) {
	for _, ok := range []string{"", "asc", "DESC", " Asc "} {
		if _, err := ParseSortOrder(ok); err != nil {
			t.Errorf("ParseSortOrder(%q): %v", ok, err)
		}
	}
	if _, err := ParseSortOrder("up"); !errors.Is(err, repository.ErrInvalidSort) {
		t.Errorf("err = %v, want ErrInvalidSort", err)
	}
}
