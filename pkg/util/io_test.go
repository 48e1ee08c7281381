package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "state.json")

	require.NoError(t, WriteFileAtomic(filename, []byte("first"), 0644))
	require.NoError(t, WriteFileAtomic(filename, []byte("second"), 0644))

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))

	// No temporary files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestJSONFile(t *testing.T) {
	type payload struct {
		A int
		B string
	}
	filename := filepath.Join(t.TempDir(), "p.json")

	var got payload
	found, err := ReadJSONFile(filename, &got)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, WriteJSONFileAtomic(filename, payload{A: 1, B: "b"}, 0644))
	found, err = ReadJSONFile(filename, &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, payload{A: 1, B: "b"}, got)

	require.NoError(t, os.WriteFile(filename, []byte("{not json"), 0644))
	found, err = ReadJSONFile(filename, &got)
	require.Error(t, err)
	require.True(t, found)
}
