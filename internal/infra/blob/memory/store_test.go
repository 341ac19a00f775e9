package memory

import (
	"bytes"
	"communityconnect/internal/blob/core"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	assert.Equal(t, core.DriverMemory, s.Driver())

	meta := map[string]string{"owner": "u1"}
	info, err := s.Put(ctx, "avatars/u1.png", bytes.NewBufferString("png"), core.PutOptions{ContentType: "image/png", Metadata: meta})
	require.NoError(t, err)
	assert.EqualValues(t, 3, info.Size)
	assert.NotEmpty(t, info.ETag)
	meta["owner"] = "mutated"

	got, rc, err := s.Get(ctx, "avatars/u1.png")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "png", string(body))
	assert.Equal(t, "u1", got.Metadata["owner"])

	_, err = s.Put(ctx, "avatars/u1.png", bytes.NewBufferString("png2"), core.PutOptions{})
	require.NoError(t, err)
	head, err := s.Head(ctx, "avatars/u1.png")
	require.NoError(t, err)
	assert.EqualValues(t, 4, head.Size)

	_, err = s.Put(ctx, "logos/org1.png", bytes.NewBufferString("logo"), core.PutOptions{})
	require.NoError(t, err)
	list, err := s.List(ctx, "avatars/")
	require.NoError(t, err)
	require.Len(t, list, 1)

	ok, err := s.Delete(ctx, "avatars/u1.png")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = s.Delete(ctx, "avatars/u1.png")
	assert.False(t, ok)

	_, err = s.Head(ctx, "avatars/u1.png")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.PresignURL(ctx, "logos/org1.png", core.SignedURLOptions{})
	assert.ErrorIs(t, err, core.ErrUnsupported)
	_, err = s.Put(ctx, "", bytes.NewBufferString("x"), core.PutOptions{})
	assert.Error(t, err)
}
