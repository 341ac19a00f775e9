package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"communityconnect/internal/blob/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.ErrorContains(t, err, "bucket required")
}

func TestNewWithStaticCredentials(t *testing.T) {
	store, err := New(context.Background(), Config{
		Bucket:          "media",
		Endpoint:        "http://minio.local:9000",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, core.DriverS3, store.Driver())

	url, err := store.PresignURL(context.Background(), "logos/org1.png", core.SignedURLOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://minio.local:9000/media/logos/org1.png"), url)
}

func TestMockStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()

	_, err := store.Put(ctx, "covers/org1.jpg", bytes.NewReader([]byte("cover-v1")), core.PutOptions{ContentType: "image/jpeg"})
	require.NoError(t, err)
	info, err := store.Put(ctx, "covers/org1.jpg", bytes.NewReader([]byte("cover-v2")), core.PutOptions{ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", info.ContentType)
	assert.EqualValues(t, len("cover-v2"), info.Size)

	_, rc, err := store.Get(ctx, "covers/org1.jpg")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "cover-v2", string(body))

	_, err = store.Put(ctx, "logos/org1.png", bytes.NewReader([]byte("logo")), core.PutOptions{})
	require.NoError(t, err)
	list, err := store.List(ctx, "covers/")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "covers/org1.jpg", list[0].Key)

	ok, err := store.Delete(ctx, "covers/org1.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Delete(ctx, "covers/org1.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Head(ctx, "covers/org1.jpg")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = store.PresignURL(ctx, "logos/org1.png", core.SignedURLOptions{Method: "PUT"})
	assert.ErrorIs(t, err, core.ErrUnsupported)
}

func TestMockStoreKeepsMetadataAndETag(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()

	first, err := store.Put(ctx, "users/user1/avatar.png", bytes.NewReader([]byte("v1")), core.PutOptions{ContentType: "image/png", Metadata: map[string]string{"owner": "user1"}})
	require.NoError(t, err)
	assert.Equal(t, "user1", first.Metadata["owner"])
	assert.NotEmpty(t, first.ETag)

	second, err := store.Put(ctx, "users/user1/avatar.png", bytes.NewReader([]byte("v2")), core.PutOptions{ContentType: "image/png"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ETag, second.ETag)
	assert.Empty(t, second.Metadata["owner"])

	_, _, err = store.Get(ctx, "users/user2/avatar.png")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDecodeAWSChunked(t *testing.T) {
	out, ok := decodeAWSChunked([]byte("5;chunk-signature=abc\r\nhello\r\n1\r\n!\r\n0\r\n\r\n"))
	require.True(t, ok)
	assert.Equal(t, "hello!", string(out))

	_, ok = decodeAWSChunked([]byte(`{"user1":{}}`))
	assert.False(t, ok)
	_, ok = decodeAWSChunked([]byte("9\r\nshort\r\n0\r\n"))
	assert.False(t, ok)
}
