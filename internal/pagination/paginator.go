package pagination

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidPage     = errors.New("invalid page number")
	ErrInvalidPageSize = errors.New("items per page must be at least 1")
	ErrNoSource        = errors.New("no item source configured")
)

// PageMetadata describes a result window. End is not clamped to TotalItems.
type PageMetadata struct {
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	Page         int `json:"page"`
	ItemsPerPage int `json:"itemsPerPage"`
	Start        int `json:"start"`
	End          int `json:"end"`
}

type Page[T any] struct {
	Items    []T          `json:"items"`
	Metadata PageMetadata `json:"metadata"`
}

// Window is the half-open item range [Start, End) requested from a deferred source.
type Window struct {
	Start int
	End   int
}

// Limit is the number of items the window asks for.
func (w Window) Limit() int { return w.End - w.Start }

type FetchFunc[T any] func(ctx context.Context, w Window) ([]T, error)

// Source is either a materialized list (Items) or a remote window fetcher (Deferred).
type Source[T any] interface {
	total() int
	slice(ctx context.Context, w Window) ([]T, error)
}

type materialized[T any] struct {
	items []T
}

func (m materialized[T]) total() int { return len(m.items) }

func (m materialized[T]) slice(_ context.Context, w Window) ([]T, error) {
	end := min(w.End, len(m.items))
	out := make([]T, end-w.Start)
	copy(out, m.items[w.Start:end])
	return out, nil
}

type deferred[T any] struct {
	totalItems int
	fetch      FetchFunc[T]
}

func (d deferred[T]) total() int { return d.totalItems }

func (d deferred[T]) slice(ctx context.Context, w Window) ([]T, error) {
	items, err := d.fetch(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("fetch items [%d,%d): %w", w.Start, w.End, err)
	}
	if len(items) > w.Limit() {
		items = items[:w.Limit()]
	}
	return items, nil
}

// Items pages over an in-memory list.
func Items[T any](items []T) Source[T] {
	return materialized[T]{items: items}
}

// Deferred pages over a remote collection of totalItems elements. fetch is
// called with the window of the requested page only.
func Deferred[T any](totalItems int, fetch FetchFunc[T]) Source[T] {
	if fetch == nil {
		return nil
	}
	return deferred[T]{totalItems: max(totalItems, 0), fetch: fetch}
}

type Paginator[T any] struct {
	itemsPerPage int
	source       Source[T]
}

func New[T any](itemsPerPage int, source Source[T]) (*Paginator[T], error) {
	if itemsPerPage < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPageSize, itemsPerPage)
	}
	if source == nil {
		return nil, ErrNoSource
	}
	return &Paginator[T]{itemsPerPage: itemsPerPage, source: source}, nil
}

func (p *Paginator[T]) TotalItems() int { return p.source.total() }

func (p *Paginator[T]) ItemsPerPage() int { return p.itemsPerPage }

func (p *Paginator[T]) TotalPages() int {
	return TotalPages(p.source.total(), p.itemsPerPage)
}

// Page returns the 1-based page. An empty collection yields an empty page for
// any page number.
func (p *Paginator[T]) Page(ctx context.Context, page int) (Page[T], error) {
	total := p.source.total()
	if total == 0 {
		return Page[T]{
			Items: []T{},
			Metadata: PageMetadata{
				Page:         page,
				ItemsPerPage: p.itemsPerPage,
			},
		}, nil
	}

	totalPages := p.TotalPages()
	if page < 1 || page > totalPages {
		return Page[T]{}, fmt.Errorf("%w: %d (1..%d)", ErrInvalidPage, page, totalPages)
	}

	w := Window{Start: (page - 1) * p.itemsPerPage}
	w.End = w.Start + p.itemsPerPage

	items, err := p.source.slice(ctx, w)
	if err != nil {
		return Page[T]{}, err
	}
	if items == nil {
		items = []T{}
	}

	return Page[T]{
		Items: items,
		Metadata: PageMetadata{
			TotalPages:   totalPages,
			TotalItems:   total,
			Page:         page,
			ItemsPerPage: p.itemsPerPage,
			Start:        w.Start,
			End:          w.End,
		},
	}, nil
}

func TotalPages(totalItems, itemsPerPage int) int {
	if totalItems <= 0 || itemsPerPage < 1 {
		return 0
	}
	return (totalItems + itemsPerPage - 1) / itemsPerPage
}
