package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveURLDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "/uploads/")
	require.NoError(t, err)

	ctx := context.Background()
	key := "gallery/retail/20260101-abc.jpg"
	require.NoError(t, store.Save(ctx, key, strings.NewReader("jpeg-bytes"), "image/jpeg"))

	data, err := os.ReadFile(filepath.Join(dir, "gallery", "retail", "20260101-abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "/uploads/gallery/retail/20260101-abc.jpg", store.URL(key))

	require.NoError(t, store.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(dir, "gallery", "retail", "20260101-abc.jpg"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, key), "deleting a missing object is not an error")
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "a/../../b", "a//b"} {
		err := store.Save(context.Background(), key, strings.NewReader("x"), "text/plain")
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestNewSelectsDriver(t *testing.T) {
	store, err := New(Config{Driver: "local", LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)

	_, err = New(Config{Driver: "ftp"})
	assert.Error(t, err)

	_, err = New(Config{Driver: "s3"})
	assert.Error(t, err, "bucket is required")
}
