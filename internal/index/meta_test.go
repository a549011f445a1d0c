// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSampleIndex builds a small DBLP index whose built_at is pinned to
// the given time.
func buildSampleIndex(t *testing.T, builtAt time.Time) string {
	t.Helper()
	dir := t.TempDir()
	dump := writeGzDump(t, dir, "dblp.nt.gz", dblpDumpSample)
	indexPath := filepath.Join(dir, "dblp.db")

	orig := buildClock
	buildClock = func() time.Time { return builtAt }
	defer func() { buildClock = orig }()

	_, err := BuildDBLP(indexPath, dump, 0, nil)
	require.NoError(t, err)
	return indexPath
}

func TestCheckStaleness(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	threshold := 30 * 24 * time.Hour

	t.Run("31 days old is stale", func(t *testing.T) {
		path := buildSampleIndex(t, now.Add(-31*24*time.Hour))
		s, err := CheckStaleness(path, threshold, now)
		require.NoError(t, err)
		assert.True(t, s.IsStale)
		assert.Equal(t, "dblp", s.SourceName)
		assert.Equal(t, int64(3), s.RecordCount)
	})

	t.Run("29 days old is fresh", func(t *testing.T) {
		path := buildSampleIndex(t, now.Add(-29*24*time.Hour))
		s, err := CheckStaleness(path, threshold, now)
		require.NoError(t, err)
		assert.False(t, s.IsStale)
	})

	t.Run("exactly at threshold is fresh", func(t *testing.T) {
		path := buildSampleIndex(t, now.Add(-threshold))
		s, err := CheckStaleness(path, threshold, now)
		require.NoError(t, err)
		assert.False(t, s.IsStale)
	})

	t.Run("missing index errors", func(t *testing.T) {
		_, err := CheckStaleness(filepath.Join(t.TempDir(), "nope.db"), threshold, now)
		assert.Error(t, err)
	})
}

func TestReaderLockLifecycle(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "idx.db")

	r1, err := AcquireReader(indexPath)
	require.NoError(t, err)
	r2, err := AcquireReader(indexPath)
	require.NoError(t, err)

	// Builders are blocked while any reader is registered.
	_, err = AcquireBuild(indexPath)
	assert.ErrorIs(t, err, ErrIndexBusy)

	r1.Release()
	_, err = AcquireBuild(indexPath)
	assert.ErrorIs(t, err, ErrIndexBusy)

	r2.Release()
	lock, err := AcquireBuild(indexPath)
	require.NoError(t, err)

	// A second build on the same path conflicts.
	_, err = AcquireBuild(indexPath)
	assert.ErrorIs(t, err, ErrIndexBusy)

	lock.Release()
	lock2, err := AcquireBuild(indexPath)
	require.NoError(t, err)
	lock2.Release()
}
