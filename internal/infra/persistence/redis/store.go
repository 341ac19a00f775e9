// Package redis persists the entity store as one Redis string key per state
// bucket. All buckets of a commit are written with a single MSET.
package redis

import (
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/internal/infra/persistence/state"
	"communityconnect/pkg/domain"
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
)

var _ domain.PersistentStore = (*Store)(nil)

// DefaultKeyPrefix namespaces bucket keys.
const DefaultKeyPrefix = "communityconnect:"

// Client is the subset of the go-redis client the store needs.
type Client interface {
	MGet(ctx context.Context, keys ...string) *goredis.SliceCmd
	MSet(ctx context.Context, values ...interface{}) *goredis.StatusCmd
	Close() error
}

// Store keeps state in memory and mirrors committed buckets to Redis.
type Store struct {
	*memory.Store
	client    Client
	prefix    string
	mu        sync.Mutex
	fallbacks []state.Fallback
}

// Open dials addr and hydrates a store from it.
func Open(ctx context.Context, addr, password string, db int, engine *domain.RulesEngine, seed memory.Snapshot) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	s, err := NewStore(ctx, client, DefaultKeyPrefix, engine, seed)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// NewStore hydrates a store from keys under prefix using client.
func NewStore(ctx context.Context, client Client, prefix string, engine *domain.RulesEngine, seed memory.Snapshot) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	s := &Store{Store: memory.NewStore(engine), client: client, prefix: prefix}
	keys := make([]string, len(state.AllBuckets))
	for i, bucket := range state.AllBuckets {
		keys[i] = s.key(bucket)
	}
	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	payloads := make(map[string][]byte, len(values))
	for i, v := range values {
		if i >= len(state.AllBuckets) {
			break
		}
		switch raw := v.(type) {
		case string:
			payloads[state.AllBuckets[i]] = []byte(raw)
		case []byte:
			payloads[state.AllBuckets[i]] = raw
		}
	}
	snapshot, fallbacks, err := state.Decode(payloads, seed)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	s.fallbacks = fallbacks
	s.ImportState(snapshot)
	return s, nil
}

func (s *Store) key(bucket string) string { return s.prefix + bucket }

func (s *Store) persist(ctx context.Context, buckets ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, err := state.Encode(s.ExportState(), buckets...)
	if err != nil {
		return err
	}
	pairs := make([]interface{}, 0, len(buckets)*2)
	for _, bucket := range buckets {
		pairs = append(pairs, s.key(bucket), payloads[bucket])
	}
	if err := s.client.MSet(ctx, pairs...).Err(); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// RunInTransaction applies fn and writes the collection buckets on success.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx, state.CollectionBuckets...); err != nil {
		return res, err
	}
	return res, nil
}

// SetThemeMode stores the theme and writes only the theme key.
func (s *Store) SetThemeMode(ctx context.Context, mode domain.ThemeMode) error {
	if err := s.Store.SetThemeMode(ctx, mode); err != nil {
		return err
	}
	return s.persist(ctx, state.BucketTheme)
}

// Fallbacks reports the buckets that were seeded rather than loaded.
func (s *Store) Fallbacks() []state.Fallback {
	return append([]state.Fallback(nil), s.fallbacks...)
}

// Close releases the client.
func (s *Store) Close() error { return s.client.Close() }
