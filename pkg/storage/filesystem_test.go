package storage

import (
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportStoreSaveOpenDelete(t *testing.T) {
	store, err := NewExportStore(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("reports/scores.csv", []byte("Student Code\nSV001\n"))
	require.NoError(t, err)
	assert.Equal(t, "reports/scores.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, file.Close())
	require.NoError(t, err)
	assert.Equal(t, "Student Code\nSV001\n", string(data))

	require.NoError(t, store.Delete(rel))
	_, err = store.Open(rel)
	require.Error(t, err)

	// Deleting an already-removed file is not an error.
	require.NoError(t, store.Delete(rel))
}

func TestExportStoreConfinesPathsToRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewExportStore(root)
	require.NoError(t, err)

	rel, err := store.Save("../../escape.csv", []byte("x"))
	require.NoError(t, err)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close()
	assert.True(t, strings.HasPrefix(file.Name(), root))
}

func TestExportStoreSweepRemovesOldFiles(t *testing.T) {
	store, err := NewExportStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("reports/old.csv", []byte("x"))
	require.NoError(t, err)

	// A zero-distance cutoff sweeps everything written so far.
	time.Sleep(10 * time.Millisecond)
	swept, err := store.Sweep(0)
	require.NoError(t, err)
	assert.Contains(t, swept, filepath.Join("reports", "old.csv"))

	_, err = store.Open("reports/old.csv")
	require.Error(t, err)
}
