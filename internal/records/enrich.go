package records

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"litebans-web/internal/model"
)

// IdentityResolver resolves one identity reference to a display profile.
type IdentityResolver interface {
	Resolve(ctx context.Context, ref string) (*model.Player, error)
	Fallback(ref string) *model.Player
}

// Enricher attaches player and staff profiles plus derived fields to records.
type Enricher struct {
	resolver IdentityResolver
	log      zerolog.Logger
	now      func() time.Time
}

func NewEnricher(resolver IdentityResolver, log zerolog.Logger) *Enricher {
	return &Enricher{
		resolver: resolver,
		log:      log.With().Str("component", "enricher").Logger(),
		now:      time.Now,
	}
}

// Enrich resolves every distinct identity of the batch once, concurrently,
// and maps the results back onto the records in order. A failed resolution
// degrades that identity to a fallback profile; only cancellation of ctx
// fails the batch.
func (e *Enricher) Enrich(ctx context.Context, category string, recs []model.PunishmentRecord) ([]model.EnrichedRecord, error) {
	refs := distinctRefs(recs)

	var (
		mu      sync.Mutex
		profile = make(map[string]*model.Player, len(refs))
		g       errgroup.Group
	)
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			p, err := e.resolver.Resolve(ctx, ref)
			if err != nil {
				e.log.Debug().Err(err).Str("ref", ref).Msg("identity unresolved")
				return nil
			}
			mu.Lock()
			profile[ref] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := e.now()
	out := make([]model.EnrichedRecord, len(recs))
	for i, r := range recs {
		out[i] = model.EnrichedRecord{
			PunishmentRecord: r,
			Category:         category,
			Player:           e.pick(profile, r.SubjectUUID()),
			Status:           r.Status(now),
			Permanent:        r.Permanent(),
		}
		if issuer := r.IssuerUUID(); issuer != "" {
			out[i].Staff = e.pick(profile, issuer)
		}
	}
	return out, nil
}

func (e *Enricher) pick(profiles map[string]*model.Player, ref string) *model.Player {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if p, ok := profiles[ref]; ok {
		return p
	}
	return e.resolver.Fallback(ref)
}

func distinctRefs(recs []model.PunishmentRecord) []string {
	seen := make(map[string]struct{}, len(recs)*2)
	var refs []string
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return
		}
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	for _, r := range recs {
		add(r.SubjectUUID())
		add(r.IssuerUUID())
	}
	return refs
}
