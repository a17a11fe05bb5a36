package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"litebans-web/internal/metrics"
	"litebans-web/internal/model"
)

const (
	cacheKeyPrefix = "player:"

	DefaultCacheTTL      = 24 * time.Hour
	DefaultCacheSweep    = time.Hour
	DefaultLookupTimeout = 10 * time.Second
)

var ErrEmptyReference = errors.New("empty identity reference")

// NameSource supplies the last known name of a UUID the profile service
// cannot resolve, e.g. from the LiteBans history table.
type NameSource interface {
	LatestName(ctx context.Context, uuid string) (string, error)
}

// NewCache creates the identity cache shared by all requests.
func NewCache(ttl, sweep time.Duration) *cache.Cache {
	return cache.New(ttl, sweep)
}

type ResolverOptions struct {
	Avatars Avatars
	// Names is optional.
	Names NameSource
	// LookupTimeout bounds a shared lookup once it no longer follows the
	// context of the request that started it.
	LookupTimeout time.Duration
	Logger        zerolog.Logger
}

// Resolver turns identity references into display profiles. Successful
// lookups are cached; concurrent first lookups of one reference share a
// single call to the profile service.
type Resolver struct {
	lookup  Lookup
	cache   *cache.Cache
	group   singleflight.Group
	avatars Avatars
	names   NameSource
	timeout time.Duration
	log     zerolog.Logger
}

func NewResolver(lookup Lookup, c *cache.Cache, opts ResolverOptions) *Resolver {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}
	return &Resolver{
		lookup:  lookup,
		cache:   c,
		avatars: opts.Avatars,
		names:   opts.Names,
		timeout: opts.LookupTimeout,
		log:     opts.Logger.With().Str("component", "player_resolver").Logger(),
	}
}

func cacheKey(ref string) string {
	if IsUUID(ref) {
		return cacheKeyPrefix + NormalizeUUID(ref)
	}
	return cacheKeyPrefix + strings.ToLower(ref)
}

// Resolve returns the profile for a UUID, username or CONSOLE. CONSOLE and
// Bedrock identities never reach the profile service.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*model.Player, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrEmptyReference
	}
	if IsConsole(ref) {
		return &model.Player{UUID: model.Console, AvatarURL: r.avatars.Console()}, nil
	}

	key := cacheKey(ref)
	if v, ok := r.cache.Get(key); ok {
		metrics.PlayerLookups.WithLabelValues("cache_hit").Inc()
		p := *v.(*model.Player)
		return &p, nil
	}

	// The shared call outlives any single waiter; each caller stops waiting
	// on its own context.
	ch := r.group.DoChan(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		var (
			p   *model.Player
			err error
		)
		if IsBedrock(ref) {
			p = r.bedrock(lookupCtx, NormalizeUUID(ref))
		} else {
			p, err = r.lookup.Lookup(lookupCtx, ref)
		}
		if err != nil {
			return nil, err
		}
		r.cache.Set(key, p, cache.DefaultExpiration)
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("resolve %s: %w", ref, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			metrics.PlayerLookups.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("resolve %s: %w", ref, res.Err)
		}
		metrics.PlayerLookups.WithLabelValues("fetched").Inc()
		p := *res.Val.(*model.Player)
		return &p, nil
	}
}

func (r *Resolver) bedrock(ctx context.Context, id string) *model.Player {
	p := &model.Player{UUID: id, AvatarURL: r.avatars.Steve()}
	if r.names == nil {
		return p
	}
	name, err := r.names.LatestName(ctx, id)
	if err != nil {
		r.log.Debug().Err(err).Str("uuid", id).Msg("no history name for bedrock player")
		return p
	}
	p.Username = name
	return p
}

// Fallback is the profile shown for a reference that could not be resolved.
func (r *Resolver) Fallback(ref string) *model.Player {
	if IsConsole(ref) {
		return &model.Player{UUID: model.Console, AvatarURL: r.avatars.Console()}
	}
	metrics.PlayerLookups.WithLabelValues("fallback").Inc()
	return &model.Player{UUID: NormalizeUUID(ref), AvatarURL: r.avatars.Steve()}
}
