// Package sqlite persists the entity store to a single SQLite table, one row
// per state bucket.
package sqlite

import (
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/internal/infra/persistence/state"
	"communityconnect/pkg/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
// It rewrites the collection buckets after every successful transaction.
type Store struct {
	*memory.Store
	db        *sql.DB
	mu        sync.Mutex
	path      string
	fallbacks []state.Fallback
}

// NewStore opens (or creates) the database at path and hydrates the store from
// it. Buckets missing from the database are taken from seed.
func NewStore(path string, engine *domain.RulesEngine, seed memory.Snapshot) (*Store, error) {
	if path == "" {
		path = "communityconnect.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(seed); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(seed memory.Snapshot) error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	payloads := make(map[string][]byte)
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	snapshot, fallbacks, err := state.Decode(payloads, seed)
	if err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	s.fallbacks = fallbacks
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist(ctx context.Context, buckets ...string) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, err := state.Encode(s.ExportState(), buckets...)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for bucket, data := range payloads {
		if _, err = tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// RunInTransaction applies the provided function within a transaction, then snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(ctx); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// SetThemeMode stores the theme and writes only the theme bucket.
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

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
