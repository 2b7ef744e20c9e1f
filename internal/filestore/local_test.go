package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knowhub-ai/knowhub/internal/config"
)

func newLocalTestStore(t *testing.T) Store {
	t.Helper()
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	return store
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := newLocalTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "doc.txt", strings.NewReader("hello"), 5))

	file, err := store.Open(ctx, "doc.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	file.Close()
	require.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, "doc.txt"))
	_, err = store.Open(ctx, "doc.txt")
	require.Error(t, err)
}

func TestLocalStoreDeleteMissingIsNoop(t *testing.T) {
	store := newLocalTestStore(t)
	require.NoError(t, store.Delete(context.Background(), "missing.txt"))
}

func TestLocalStoreRejectsBadKeys(t *testing.T) {
	store := newLocalTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", "a\\b"} {
		require.Error(t, store.Save(ctx, key, strings.NewReader("x"), 1), key)
		_, err := store.Open(ctx, key)
		require.Error(t, err, key)
	}
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
}
