package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomicWritesContentAndPermissions(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "strategy.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("key 1 2 3 4 5 6\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "key 1 2 3 4 5 6\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteFileAtomicLeavesNoStagingFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("a"), 0o644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "checkpoint.txt", entries[0].Name())
}

func TestWriteFileAtomicReplacesExistingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "checkpoint.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))
}

func TestWriteFileAtomicFailsOnMissingDirectory(t *testing.T) {
	t.Parallel()
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "x.txt"), []byte("a"), 0o644)
	require.Error(t, err)
}
