package blob

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir(), PublicBaseURL: "https://cdn.campus.test/media"})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, fsStore.Driver())

	mem, err := Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, mem.Driver())

	_, err = Open(ctx, Config{Driver: DriverS3})
	assert.ErrorContains(t, err, "bucket required")

	_, err = Open(ctx, Config{Driver: "ftp"})
	assert.ErrorContains(t, err, "unknown blob driver")
}

func TestDriversOverwriteOnPut(t *testing.T) {
	ctx := context.Background()
	fsStore, err := NewFilesystem(t.TempDir(), "")
	require.NoError(t, err)
	stores := map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
		"s3":     NewMockS3ForTests(),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := store.Put(ctx, "state/users.json", bytes.NewReader([]byte("v1")), PutOptions{ContentType: "application/json"})
			require.NoError(t, err)
			_, err = store.Put(ctx, "state/users.json", bytes.NewReader([]byte("v2")), PutOptions{ContentType: "application/json"})
			require.NoError(t, err)

			_, rc, err := store.Get(ctx, "state/users.json")
			require.NoError(t, err)
			body, err := io.ReadAll(rc)
			require.NoError(t, rc.Close())
			require.NoError(t, err)
			assert.Equal(t, "v2", string(body))

			_, _, err = store.Get(ctx, "state/missing.json")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
