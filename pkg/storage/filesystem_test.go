package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("job-1.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.Equal(t, "job-1.csv", name)

	file, err := store.Open(name)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, store.Delete(name))
	_, err = store.Open(name)
	require.Error(t, err)

	// Deleting an absent file is not an error.
	require.NoError(t, store.Delete(name))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("stale.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("fresh.csv", []byte("new"))
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "stale.csv"), old, old))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"stale.csv"}, deleted)

	_, err = os.Stat(filepath.Join(dir, "stale.csv"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "fresh.csv"))
	require.NoError(t, err)
}
