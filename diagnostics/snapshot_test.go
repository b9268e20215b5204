package diagnostics

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters_SnapshotReflectsLifecycle(t *testing.T) {
	var c Counters
	c.ConnectionAccepted()
	c.ConnectionAccepted()
	c.ConnectionClosed()
	c.HandshakeFailed()

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.AcceptedConnections)
	assert.Equal(t, int64(1), s.ActiveConnections)
	assert.Equal(t, int64(1), s.FailedHandshakes)
}

func TestSnapshot_WriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	want := Snapshot{AcceptedConnections: 5, ActiveConnections: 2, FailedHandshakes: 1}

	require.NoError(t, want.WriteFile(path))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadFile_MissingFileYieldsZeroValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, got)
}
