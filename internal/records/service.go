package records

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"litebans-web/internal/metrics"
	"litebans-web/internal/model"
	"litebans-web/internal/pagination"
	"litebans-web/internal/player"
	"litebans-web/internal/repository"
)

// Repository is the record storage the service reads from.
type Repository interface {
	Count(ctx context.Context, cat model.Category, f repository.Filter) (int64, error)
	List(ctx context.Context, cat model.Category, f repository.Filter, offset, limit int) ([]model.PunishmentRecord, error)
	Get(ctx context.Context, cat model.Category, id int64) (*model.PunishmentRecord, error)
	ListSince(ctx context.Context, cat model.Category, afterID int64, limit int) ([]model.PunishmentRecord, error)
}

type Query struct {
	Category     model.Category
	Page         int
	ItemsPerPage int
	// Search is a UUID or a player name; names are resolved to a UUID first.
	Search    string
	SortBy    string
	SortOrder repository.SortOrder
}

type Service struct {
	repo     Repository
	resolver IdentityResolver
	enricher *Enricher
	log      zerolog.Logger
}

func NewService(repo Repository, resolver IdentityResolver, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		enricher: NewEnricher(resolver, log),
		log:      log.With().Str("component", "records").Logger(),
	}
}

// List returns one enriched page of a category. Only the requested window is
// read from the database.
func (s *Service) List(ctx context.Context, q Query) (pagination.Page[model.EnrichedRecord], error) {
	filter := repository.Filter{
		Subject:   s.searchSubject(ctx, q.Search),
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}
	if err := repository.ValidateSort(q.Category, filter); err != nil {
		return pagination.Page[model.EnrichedRecord]{}, err
	}

	total, err := s.repo.Count(ctx, q.Category, filter)
	if err != nil {
		return pagination.Page[model.EnrichedRecord]{}, err
	}

	fetch := func(ctx context.Context, w pagination.Window) ([]model.EnrichedRecord, error) {
		recs, err := s.repo.List(ctx, q.Category, filter, w.Start, w.Limit())
		if err != nil {
			return nil, err
		}
		return s.enricher.Enrich(ctx, q.Category.ID, recs)
	}

	p, err := pagination.New(q.ItemsPerPage, pagination.Deferred(int(total), fetch))
	if err != nil {
		return pagination.Page[model.EnrichedRecord]{}, err
	}
	page, err := p.Page(ctx, q.Page)
	if err != nil {
		return pagination.Page[model.EnrichedRecord]{}, err
	}

	metrics.RecordsFetched.WithLabelValues(q.Category.ID).Inc()
	s.log.Debug().
		Str("category", q.Category.ID).
		Int("page", q.Page).
		Int("total", int(total)).
		Msg(q.Category.DisplayName + " records fetched")
	return page, nil
}

func (s *Service) Get(ctx context.Context, cat model.Category, id int64) (*model.EnrichedRecord, error) {
	rec, err := s.repo.Get(ctx, cat, id)
	if err != nil {
		return nil, err
	}
	out, err := s.enricher.Enrich(ctx, cat.ID, []model.PunishmentRecord{*rec})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Latest returns the newest records of a category, newest first.
func (s *Service) Latest(ctx context.Context, cat model.Category, limit int) ([]model.EnrichedRecord, error) {
	recs, err := s.repo.List(ctx, cat, repository.Filter{SortBy: "id"}, 0, limit)
	if err != nil {
		return nil, err
	}
	return s.enricher.Enrich(ctx, cat.ID, recs)
}

// Since returns records created after afterID, oldest first.
func (s *Service) Since(ctx context.Context, cat model.Category, afterID int64, limit int) ([]model.EnrichedRecord, error) {
	recs, err := s.repo.ListSince(ctx, cat, afterID, limit)
	if err != nil {
		return nil, err
	}
	return s.enricher.Enrich(ctx, cat.ID, recs)
}

// searchSubject turns a search string into the UUID records are matched on.
// Unresolvable names are searched verbatim and match nothing.
func (s *Service) searchSubject(ctx context.Context, search string) string {
	search = strings.TrimSpace(search)
	if search == "" {
		return ""
	}
	if !player.IsName(search) {
		return player.NormalizeUUID(search)
	}
	p, err := s.resolver.Resolve(ctx, search)
	if err != nil {
		s.log.Debug().Err(err).Str("search", search).Msg("search name unresolved")
		return search
	}
	return p.UUID
}

// ParseSortOrder accepts "asc" or "desc" in any case; empty means default.
func ParseSortOrder(s string) (repository.SortOrder, error) {
	switch o := repository.SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "", repository.SortAsc, repository.SortDesc:
		return o, nil
	default:
		return "", fmt.Errorf("%w: order %q", repository.ErrInvalidSort, s)
	}
}
