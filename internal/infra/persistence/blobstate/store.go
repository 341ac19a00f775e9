// Package blobstate persists the entity store as one JSON object per state
// bucket in a blob store (local directory, S3 or memory).
package blobstate

import (
	"bytes"
	"communityconnect/internal/blob"
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/internal/infra/persistence/state"
	"communityconnect/pkg/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var _ domain.PersistentStore = (*Store)(nil)

// DefaultPrefix namespaces state objects inside a shared bucket.
const DefaultPrefix = "state/"

// Store keeps state in memory and rewrites bucket objects after every
// committed transaction. Objects are written one by one; a crash between two
// writes leaves buckets from different commits, which hydration tolerates.
type Store struct {
	*memory.Store
	blobs     blob.Store
	prefix    string
	mu        sync.Mutex
	fallbacks []state.Fallback
}

// NewStore hydrates a store from objects under prefix, falling back to seed
// for missing objects.
func NewStore(ctx context.Context, blobs blob.Store, prefix string, engine *domain.RulesEngine, seed memory.Snapshot) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	s := &Store{Store: memory.NewStore(engine), blobs: blobs, prefix: prefix}
	payloads := make(map[string][]byte, len(state.AllBuckets))
	for _, bucket := range state.AllBuckets {
		data, err := s.read(ctx, bucket)
		if errors.Is(err, blob.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", bucket, err)
		}
		payloads[bucket] = data
	}
	snapshot, fallbacks, err := state.Decode(payloads, seed)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	s.fallbacks = fallbacks
	s.ImportState(snapshot)
	return s, nil
}

func (s *Store) key(bucket string) string { return s.prefix + bucket + ".json" }

func (s *Store) read(ctx context.Context, bucket string) ([]byte, error) {
	_, rc, err := s.blobs.Get(ctx, s.key(bucket))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func (s *Store) persist(ctx context.Context, buckets ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, err := state.Encode(s.ExportState(), buckets...)
	if err != nil {
		return err
	}
	for _, bucket := range buckets {
		opts := blob.PutOptions{ContentType: "application/json", Metadata: map[string]string{"bucket": bucket}}
		if _, err := s.blobs.Put(ctx, s.key(bucket), bytes.NewReader(payloads[bucket]), opts); err != nil {
			return fmt.Errorf("write %s: %w", bucket, err)
		}
	}
	return nil
}

// RunInTransaction applies fn and rewrites the collection objects on success.
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

// SetThemeMode stores the theme and rewrites only the theme object.
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
