package postgres

import (
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/internal/infra/persistence/state"
	"communityconnect/pkg/domain"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, rows *sqlmock.Rows, seed memory.Snapshot) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)

	mock.ExpectPing()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS state").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT bucket, payload FROM state").WillReturnRows(rows)

	store, err := NewStore(context.Background(), "", domain.NewRulesEngine(), seed)
	require.NoError(t, err)
	return store, mock
}

func TestNewStoreLoadsSnapshotAndSeedsMissingBuckets(t *testing.T) {
	rows := sqlmock.NewRows([]string{"bucket", "payload"}).
		AddRow(state.BucketSchemaVersion, []byte("1")).
		AddRow(state.BucketUsers, []byte(`{"u1":{"name":"Ada"}}`)).
		AddRow(state.BucketTheme, []byte(`"dark"`))
	seed := memory.Snapshot{
		Users:         map[string]domain.User{"seed-user": {Name: "Seed"}},
		Organizations: map[string]domain.Organization{"org1": {Name: "Debate"}},
	}
	store, mock := newMockStore(t, rows, seed)

	_, ok := store.GetUser("u1")
	assert.True(t, ok)
	_, ok = store.GetUser("seed-user")
	assert.False(t, ok, "stored users bucket replaces seed users")
	_, ok = store.GetOrganization("org1")
	assert.True(t, ok)
	assert.Equal(t, domain.ThemeDark, store.ThemeMode())

	var seeded []string
	for _, f := range store.Fallbacks() {
		seeded = append(seeded, f.Bucket)
	}
	assert.ElementsMatch(t, []string{state.BucketOrganizations, state.BucketEvents, state.BucketSession}, seeded)

	mock.ExpectClose()
	require.NoError(t, store.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionUpsertsCollectionBuckets(t *testing.T) {
	store, mock := newMockStore(t, sqlmock.NewRows([]string{"bucket", "payload"}), memory.Snapshot{})

	mock.ExpectBegin()
	for _, bucket := range state.CollectionBuckets {
		mock.ExpectExec("INSERT INTO state").WithArgs(bucket, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateUser(domain.User{Base: domain.Base{ID: "u1"}, Name: "Grace"})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetThemeModeUpsertsOnlyThemeBucket(t *testing.T) {
	store, mock := newMockStore(t, sqlmock.NewRows([]string{"bucket", "payload"}), memory.Snapshot{})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO state").WithArgs(state.BucketTheme, []byte(`"dark"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SetThemeMode(context.Background(), domain.ThemeDark))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t, sqlmock.NewRows([]string{"bucket", "payload"}), memory.Snapshot{})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO state").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateUser(domain.User{Base: domain.Base{ID: "u1"}})
		return err
	})
	require.ErrorContains(t, err, "upsert schema_version")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStoreErrors(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("no driver") })
		defer restore()
		_, err := NewStore(context.Background(), "postgres://example", nil, memory.Snapshot{})
		require.ErrorContains(t, err, "open postgres")
	})

	t.Run("ping", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
		defer restore()
		mock.ExpectPing().WillReturnError(errors.New("refused"))
		_, err = NewStore(context.Background(), "", nil, memory.Snapshot{})
		require.ErrorContains(t, err, "ping postgres")
	})

	t.Run("newer schema", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
		defer restore()
		mock.ExpectPing()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS state").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT bucket, payload FROM state").WillReturnRows(
			sqlmock.NewRows([]string{"bucket", "payload"}).AddRow(state.BucketSchemaVersion, []byte("99")))
		_, err = NewStore(context.Background(), "", nil, memory.Snapshot{})
		var newer state.ErrNewerSchema
		require.ErrorAs(t, err, &newer)
	})
}
