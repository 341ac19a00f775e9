package fs

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"communityconnect/internal/blob/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := New(t.TempDir(), opts...)
	require.NoError(t, err)
	return store
}

func TestStore_PutGetHeadListDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, "logos/org1.png", bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "image/png", Metadata: map[string]string{"org": "org1"}})
	require.NoError(t, err)
	assert.Equal(t, "logos/org1.png", info.Key)
	assert.EqualValues(t, 5, info.Size)

	h, err := store.Head(ctx, "logos/org1.png")
	require.NoError(t, err)
	g, rc, err := store.Get(ctx, "logos/org1.png")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(b))
	assert.Equal(t, h.ETag, g.ETag)
	assert.Equal(t, "org1", g.Metadata["org"])

	_, err = store.Put(ctx, "covers/org1.png", bytes.NewReader([]byte("cover")), core.PutOptions{})
	require.NoError(t, err)
	list, err := store.List(ctx, "logos/")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "logos/org1.png", list[0].Key)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ok, err := store.Delete(ctx, "logos/org1.png")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Delete(ctx, "logos/org1.png")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Head(ctx, "logos/org1.png")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_PutOverwritesAndKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	store.nowFn = func() time.Time { return first }
	_, err := store.Put(ctx, "state/users.json", bytes.NewReader([]byte(`{}`)), core.PutOptions{})
	require.NoError(t, err)

	store.nowFn = func() time.Time { return second }
	info, err := store.Put(ctx, "state/users.json", bytes.NewReader([]byte(`{"u1":{}}`)), core.PutOptions{})
	require.NoError(t, err)
	assert.True(t, info.LastModified.Equal(second))

	mf, err := readMeta(store.root + "/state/users.json.meta")
	require.NoError(t, err)
	assert.True(t, mf.CreatedAt.Equal(first))
	assert.EqualValues(t, len(`{"u1":{}}`), mf.Size)
}

func TestStore_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../../b", "sneaky.meta"} {
		_, err := store.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{})
		assert.Error(t, err, "key %q", key)
	}
}

func TestStore_PresignURL(t *testing.T) {
	ctx := context.Background()
	plain := newTempStore(t)
	_, err := plain.PresignURL(ctx, "logos/a.png", core.SignedURLOptions{})
	assert.ErrorIs(t, err, core.ErrUnsupported)

	public := newTempStore(t, WithBaseURL("https://cdn.campus.test/media/"))
	url, err := public.PresignURL(ctx, "logos/a.png", core.SignedURLOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.campus.test/media/logos/a.png", url)
	_, err = public.PresignURL(ctx, "logos/a.png", core.SignedURLOptions{Method: "PUT"})
	assert.ErrorIs(t, err, core.ErrUnsupported)
	assert.Equal(t, core.DriverFilesystem, public.Driver())
}
