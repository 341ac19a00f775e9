// Package postgres provides a Postgres-backed persistent store that mirrors the
// in-memory semantics and snapshots every state bucket into a JSONB table.
package postgres

import (
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/internal/infra/persistence/state"
	"communityconnect/pkg/domain"
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/communityconnect?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db        *sql.DB
	mu        sync.Mutex
	fallbacks []state.Fallback
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN),
// ensures the snapshot table exists and hydrates the in-memory store from it.
// Buckets missing from the table are taken from seed.
func NewStore(ctx context.Context, dsn string, engine *domain.RulesEngine, seed memory.Snapshot) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	payloads, err := loadPayloads(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	snapshot, fallbacks, err := state.Decode(payloads, seed)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("decode state: %w", err)
	}
	mem := memory.NewStore(engine)
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db, fallbacks: fallbacks}, nil
}

// RunInTransaction applies the provided function within a transaction, then snapshots to Postgres if successful.
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

// SetThemeMode stores the theme and upserts only the theme bucket.
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

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

func loadPayloads(ctx context.Context, db *sql.DB) (map[string][]byte, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payloads := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}
	return payloads, nil
}

func (s *Store) persist(ctx context.Context, buckets ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, err := state.Encode(s.ExportState(), buckets...)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, bucket, payloads[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
