package sqlite

import (
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/internal/infra/persistence/state"
	"communityconnect/pkg/domain"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSnapshot() memory.Snapshot {
	return memory.Snapshot{
		Organizations: map[string]domain.Organization{
			"org1": {Name: "Chess Club", MemberCount: 3},
		},
	}
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()
	store, err := NewStore(path, domain.NewRulesEngine(), seedSnapshot())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	assert.Len(t, store.Fallbacks(), 5)

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateUser(domain.User{Base: domain.Base{ID: "u1"}, Name: "Persist"}); err != nil {
			return err
		}
		if _, err := tx.UpdateOrganization("org1", func(o *domain.Organization) error {
			o.MemberCount++
			return nil
		}); err != nil {
			return err
		}
		return tx.SetSessionUser("u1")
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reloaded, err := NewStore(path, domain.NewRulesEngine(), memory.Snapshot{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reloaded.Close() })

	// only the theme bucket was never written
	require.Len(t, reloaded.Fallbacks(), 1)
	assert.Equal(t, state.BucketTheme, reloaded.Fallbacks()[0].Bucket)

	u, ok := reloaded.GetUser("u1")
	require.True(t, ok)
	assert.Equal(t, "Persist", u.Name)
	org, ok := reloaded.GetOrganization("org1")
	require.True(t, ok)
	assert.Equal(t, 4, org.MemberCount)
	id, ok := reloaded.SessionUserID()
	require.True(t, ok)
	assert.Equal(t, "u1", id)
}

func TestSQLiteThemePersistsIndependently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	ctx := context.Background()
	store, err := NewStore(path, nil, memory.Snapshot{})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	require.NoError(t, store.SetThemeMode(ctx, domain.ThemeDark))
	assert.Error(t, store.SetThemeMode(ctx, "neon"))

	var buckets []string
	rows, err := store.DB().Query(`SELECT bucket FROM state ORDER BY bucket`)
	require.NoError(t, err)
	for rows.Next() {
		var b string
		require.NoError(t, rows.Scan(&b))
		buckets = append(buckets, b)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{state.BucketTheme}, buckets)
	require.NoError(t, store.Close())

	reloaded, err := NewStore(path, nil, memory.Snapshot{Theme: domain.ThemeLight})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reloaded.Close() })
	assert.Equal(t, domain.ThemeDark, reloaded.ThemeMode())
	assert.Equal(t, path, reloaded.Path())
}

func TestSQLiteFailedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path, nil, memory.Snapshot{})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateUser("missing", func(*domain.User) error { return nil })
		return err
	})
	require.True(t, domain.IsNotFound(err))

	var count int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count))
	assert.Zero(t, count)
}
