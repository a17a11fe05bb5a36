package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"litebans-web/internal/kv"
	"litebans-web/internal/metrics"
)

const (
	DefaultRoleCacheTTL = 5 * time.Minute
	roleCacheSweep      = time.Hour
)

type AuthorizerOptions struct {
	RequiredRole string
	// DemoMode authorizes every signed-in user.
	DemoMode bool
	CacheTTL time.Duration
	// Redis is optional; when set, role sets are shared between instances.
	Redis     *redis.Client
	KeyPrefix string
	Logger    zerolog.Logger
}

// Authorizer decides whether a user holds the required guild role. Role
// sets are cached in process and, when Redis is configured, as a Redis set
// with the same TTL.
type Authorizer struct {
	roles  RoleSource
	opts   AuthorizerOptions
	memory *cache.Cache
	log    zerolog.Logger
}

func NewAuthorizer(roles RoleSource, opts AuthorizerOptions) *Authorizer {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultRoleCacheTTL
	}
	return &Authorizer{
		roles:  roles,
		opts:   opts,
		memory: cache.New(opts.CacheTTL, roleCacheSweep),
		log:    opts.Logger.With().Str("component", "authorizer").Logger(),
	}
}

func (a *Authorizer) IsAuthorized(ctx context.Context, userID string) (bool, error) {
	if a.opts.DemoMode {
		metrics.RoleChecks.WithLabelValues("demo", "allowed").Inc()
		return true, nil
	}
	if userID == "" {
		return false, ErrUnauthenticated
	}

	roles, source, err := a.memberRoles(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("roles of %s: %w", userID, err)
	}

	ok := slices.Contains(roles, a.opts.RequiredRole)
	result := "denied"
	if ok {
		result = "allowed"
	}
	metrics.RoleChecks.WithLabelValues(source, result).Inc()
	return ok, nil
}

func (a *Authorizer) memoryKey(userID string) string { return "discord-roles:" + userID }

func (a *Authorizer) redisKey(userID string) string {
	return kv.Key(a.opts.KeyPrefix, "discord-roles", userID)
}

func (a *Authorizer) memberRoles(ctx context.Context, userID string) ([]string, string, error) {
	if v, ok := a.memory.Get(a.memoryKey(userID)); ok {
		return v.([]string), "memory", nil
	}

	if a.opts.Redis != nil {
		roles, err := a.opts.Redis.SMembers(ctx, a.redisKey(userID)).Result()
		if err != nil {
			a.log.Warn().Err(err).Str("user", userID).Msg("role cache read failed")
		} else if len(roles) > 0 {
			a.memory.Set(a.memoryKey(userID), roles, cache.DefaultExpiration)
			return roles, "redis", nil
		}
	}

	roles, err := a.roles.MemberRoles(ctx, userID)
	if errors.Is(err, ErrNoLinkedAccount) {
		// same as not being in the guild: no roles, cached in memory only
		roles, err = []string{}, nil
	}
	if err != nil {
		return nil, "remote", err
	}
	if roles == nil {
		roles = []string{}
	}
	a.memory.Set(a.memoryKey(userID), roles, cache.DefaultExpiration)
	a.storeRedis(ctx, userID, roles)
	return roles, "remote", nil
}

// storeRedis writes the role set; an empty set cannot be stored in Redis and
// stays in memory only.
func (a *Authorizer) storeRedis(ctx context.Context, userID string, roles []string) {
	if a.opts.Redis == nil || len(roles) == 0 {
		return
	}
	key := a.redisKey(userID)
	members := make([]interface{}, len(roles))
	for i, r := range roles {
		members[i] = r
	}
	_, err := a.opts.Redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.SAdd(ctx, key, members...)
		p.Expire(ctx, key, a.opts.CacheTTL)
		return nil
	})
	if err != nil {
		a.log.Warn().Err(err).Str("user", userID).Msg("role cache write failed")
	}
}
