package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemStore_Save(t *testing.T) {
	t.Run("saves file to disk", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		n, err := store.Save("abc12345.txt", bytes.NewReader([]byte("test content")), 0)
		require.NoError(t, err)
		assert.Equal(t, int64(12), n)

		content, err := os.ReadFile(filepath.Join(dir, "abc12345.txt"))
		require.NoError(t, err)
		assert.Equal(t, "test content", string(content))
	})

	t.Run("accepts payload exactly at limit", func(t *testing.T) {
		store := NewFileSystemStore(t.TempDir())

		n, err := store.Save("exact", strings.NewReader("12345"), 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})

	t.Run("rejects payload over limit and removes partial file", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		_, err := store.Save("big.bin", strings.NewReader(strings.Repeat("x", 1024)), 100)
		assert.ErrorIs(t, err, ErrTooLarge)

		_, statErr := os.Stat(filepath.Join(dir, "big.bin"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("refuses to overwrite existing bytes", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		_, err := store.Save("dup", strings.NewReader("one"), 0)
		require.NoError(t, err)
		_, err = store.Save("dup", strings.NewReader("two"), 0)
		assert.ErrorIs(t, err, ErrExist)

		content, err := os.ReadFile(filepath.Join(dir, "dup"))
		require.NoError(t, err)
		assert.Equal(t, "one", string(content))
	})

	t.Run("rejects names escaping the directory", func(t *testing.T) {
		store := NewFileSystemStore(t.TempDir())

		for _, name := range []string{"", "../evil", "a/b", ".hidden"} {
			_, err := store.Save(name, strings.NewReader("x"), 0)
			assert.ErrorIs(t, err, ErrInvalidName, name)
		}
	})
}

func TestFileSystemStore_GetPath(t *testing.T) {
	t.Run("returns path for existing file", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)
		filePath := filepath.Join(dir, "test123.pdf")
		require.NoError(t, os.WriteFile(filePath, []byte("data"), 0o644))

		path, err := store.GetPath("test123.pdf")
		require.NoError(t, err)
		assert.Equal(t, filePath, path)
	})

	t.Run("returns ErrNotExist for missing file", func(t *testing.T) {
		store := NewFileSystemStore(t.TempDir())

		_, err := store.GetPath("nonexistent")
		assert.ErrorIs(t, err, ErrNotExist)
	})
}

func TestFileSystemStore_Delete(t *testing.T) {
	t.Run("deletes existing file", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)
		filePath := filepath.Join(dir, "del123")
		require.NoError(t, os.WriteFile(filePath, []byte("data"), 0o644))

		require.NoError(t, store.Delete("del123"))
		_, err := os.Stat(filePath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("no error for missing file", func(t *testing.T) {
		store := NewFileSystemStore(t.TempDir())
		assert.NoError(t, store.Delete("nonexistent"))
	})
}

func TestFileSystemStore_EnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	store := NewFileSystemStore(dir)

	require.NoError(t, store.EnsureDir())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, store.EnsureDir())
}
