package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/reports/out.sarif")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "reports", "out.sarif"), expanded)

	unchanged, err := ExpandPath("/tmp/out.sarif")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out.sarif", unchanged)
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.NoError(t, ValidatePath(file))
	assert.Error(t, ValidatePath(dir), "directories are rejected")
	assert.Error(t, ValidatePath(filepath.Join(dir, "missing.txt")))
}

func TestCreateFolderIfNotExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c")

	require.NoError(t, CreateFolderIfNotExists(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, CreateFolderIfNotExists(path), "existing folders are left alone")
}

func TestMakeScratchDir(t *testing.T) {
	dir, err := MakeScratchDir("codesentry-test-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRemoveAndRecreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scratch")
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "stale.txt"), []byte("x"), 0o644))

	require.NoError(t, RemoveAndRecreate(path))

	entries, err := os.ReadDir(path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
