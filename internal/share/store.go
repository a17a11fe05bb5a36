package share

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"litebans-web/internal/kv"
	"litebans-web/internal/metrics"
	"litebans-web/internal/model"
)

const (
	KeyLength  = 16
	DefaultTTL = time.Hour

	keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	ErrNotFound = errors.New("share not found")
	// ErrUnavailable is returned when no key-value store is configured.
	ErrUnavailable = errors.New("sharing is not available")
)

// GenerateKey returns KeyLength random alphanumeric characters.
func GenerateKey() (string, error) {
	alphabetLen := big.NewInt(int64(len(keyAlphabet)))
	b := make([]byte, KeyLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("generate share key: %w", err)
		}
		b[i] = keyAlphabet[n.Int64()]
	}
	return string(b), nil
}

type Request struct {
	Category  string
	Record    int64
	Protected bool
	Creator   string
}

// Store keeps shares in Redis under {prefix}:share:{key}. A nil client
// yields a store that reports ErrUnavailable on create and ErrNotFound on read.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *Store) key(k string) string { return kv.Key(s.prefix, "share", k) }

func (s *Store) Enabled() bool { return s.client != nil }

func (s *Store) Create(ctx context.Context, req Request) (*model.RecordShare, error) {
	if s.client == nil {
		return nil, ErrUnavailable
	}

	now := s.now().UTC()
	share := &model.RecordShare{
		Category:  req.Category,
		Record:    req.Record,
		Protected: req.Protected,
		Creator:   req.Creator,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	// SETNX guards against the rare key collision.
	for attempt := 0; attempt < 3; attempt++ {
		k, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		share.Key = k

		data, err := json.Marshal(share)
		if err != nil {
			return nil, fmt.Errorf("marshal share: %w", err)
		}
		ok, err := s.client.SetNX(ctx, s.key(k), data, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("store share: %w", err)
		}
		if ok {
			metrics.SharesCreated.Inc()
			return share, nil
		}
	}
	return nil, errors.New("store share: key collision")
}

func (s *Store) Get(ctx context.Context, key string) (*model.RecordShare, error) {
	if s.client == nil || len(key) != KeyLength {
		return nil, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load share %s: %w", key, err)
	}

	var share model.RecordShare
	if err := json.Unmarshal(data, &share); err != nil {
		return nil, fmt.Errorf("decode share %s: %w", key, err)
	}
	return &share, nil
}
