package jsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")

	require.NoError(t, Write(path, map[string]int{"a": 1}))

	var got map[string]int
	require.NoError(t, Read(path, &got))
	assert.Equal(t, 1, got["a"])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), raw[len(raw)-1])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should have been renamed away")
}

func TestRead_Missing(t *testing.T) {
	var v map[string]int
	err := Read(filepath.Join(t.TempDir(), "nope.json"), &v)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRead_EmptyAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0644))

	var v map[string]int
	err := Read(empty, &v)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	err = Read(corrupt, &v)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
