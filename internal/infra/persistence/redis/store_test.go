package redis

import (
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/internal/infra/persistence/state"
	"communityconnect/pkg/domain"
	"context"
	"errors"
	"os"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient keeps keys in a map and records MSET calls.
type fakeClient struct {
	data    map[string]string
	msets   [][]string
	failGet error
	failSet error
	closed  bool
}

func newFakeClient() *fakeClient { return &fakeClient{data: map[string]string{}} }

func (f *fakeClient) MGet(_ context.Context, keys ...string) *goredis.SliceCmd {
	if f.failGet != nil {
		return goredis.NewSliceResult(nil, f.failGet)
	}
	out := make([]interface{}, len(keys))
	for i, k := range keys {
		if v, ok := f.data[k]; ok {
			out[i] = v
		}
	}
	return goredis.NewSliceResult(out, nil)
}

func (f *fakeClient) MSet(_ context.Context, values ...interface{}) *goredis.StatusCmd {
	if f.failSet != nil {
		return goredis.NewStatusResult("", f.failSet)
	}
	var keys []string
	for i := 0; i+1 < len(values); i += 2 {
		k := values[i].(string)
		f.data[k] = string(values[i+1].([]byte))
		keys = append(keys, k)
	}
	f.msets = append(f.msets, keys)
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestRedisStoreSeedsAndPersists(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	seed := memory.Snapshot{Users: map[string]domain.User{"u1": {Name: "Ada"}}}

	store, err := NewStore(ctx, client, "", nil, seed)
	require.NoError(t, err)
	assert.Len(t, store.Fallbacks(), 5)

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.SetSessionUser("u1")
	})
	require.NoError(t, err)
	require.Len(t, client.msets, 1)
	assert.Len(t, client.msets[0], len(state.CollectionBuckets))
	assert.Equal(t, "1", client.data[DefaultKeyPrefix+state.BucketSchemaVersion])

	require.NoError(t, store.SetThemeMode(ctx, domain.ThemeDark))
	require.Len(t, client.msets, 2)
	assert.Equal(t, []string{DefaultKeyPrefix + state.BucketTheme}, client.msets[1])

	reloaded, err := NewStore(ctx, client, "", nil, memory.Snapshot{})
	require.NoError(t, err)
	assert.Empty(t, reloaded.Fallbacks())
	id, ok := reloaded.SessionUserID()
	require.True(t, ok)
	assert.Equal(t, "u1", id)
	assert.Equal(t, domain.ThemeDark, reloaded.ThemeMode())

	require.NoError(t, reloaded.Close())
	assert.True(t, client.closed)
}

func TestRedisStoreErrors(t *testing.T) {
	ctx := context.Background()
	_, err := NewStore(ctx, nil, "", nil, memory.Snapshot{})
	assert.Error(t, err)

	client := newFakeClient()
	client.failGet = errors.New("connection refused")
	_, err = NewStore(ctx, client, "", nil, memory.Snapshot{})
	assert.ErrorContains(t, err, "connection refused")

	client = newFakeClient()
	client.data[DefaultKeyPrefix+state.BucketSchemaVersion] = "99"
	_, err = NewStore(ctx, client, "", nil, memory.Snapshot{})
	var newer state.ErrNewerSchema
	assert.ErrorAs(t, err, &newer)

	client = newFakeClient()
	store, err := NewStore(ctx, client, "", nil, memory.Snapshot{})
	require.NoError(t, err)
	client.failSet = errors.New("readonly replica")
	assert.ErrorContains(t, store.SetThemeMode(ctx, domain.ThemeDark), "readonly replica")
}

// TestRedisStoreIntegration requires a running Redis.
func TestRedisStoreIntegration(t *testing.T) {
	addr := os.Getenv("COMMUNITYCONNECT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("COMMUNITYCONNECT_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, addr, "", 0, nil, memory.Snapshot{})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.SetThemeMode(ctx, domain.ThemeDark))
	assert.Equal(t, domain.ThemeDark, store.ThemeMode())
}
