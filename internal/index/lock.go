// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

// ErrIndexBusy is returned when a builder is invoked while a validation
// run has the index open, or another builder holds the build lock.
var ErrIndexBusy = errors.New("index is in use")

// readerDir returns the directory holding per-reader marker files.
func readerDir(indexPath string) string {
	return indexPath + ".readers"
}

func buildLockPath(indexPath string) string {
	return indexPath + ".lock"
}

// ReaderLock marks an index as open for querying. Many readers may hold
// the index at once; a builder refuses to run while any marker exists.
type ReaderLock struct {
	path string
}

// AcquireReader registers a reader marker for the index.
func AcquireReader(indexPath string) (*ReaderLock, error) {
	dir := readerDir(indexPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating reader marker directory: %w", err)
	}
	marker := filepath.Join(dir, uuid.NewString())
	if err := os.WriteFile(marker, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("writing reader marker: %w", err)
	}
	return &ReaderLock{path: marker}, nil
}

// Release removes the reader marker.
func (l *ReaderLock) Release() {
	if l != nil && l.path != "" {
		os.Remove(l.path)
		// Best effort: clears the directory once the last reader leaves.
		os.Remove(filepath.Dir(l.path))
		l.path = ""
	}
}

// BuildLock grants exclusive write access to an index location.
type BuildLock struct {
	path string
}

// AcquireBuild takes the exclusive build lock for an index path. It fails
// with ErrIndexBusy when readers are registered or another build is
// running.
func AcquireBuild(indexPath string) (*BuildLock, error) {
	entries, err := os.ReadDir(readerDir(indexPath))
	if err == nil && len(entries) > 0 {
		return nil, fmt.Errorf("%w: %d active reader(s) on %s", ErrIndexBusy, len(entries), indexPath)
	}

	lockPath := buildLockPath(indexPath)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: build lock %s already held", ErrIndexBusy, lockPath)
		}
		return nil, fmt.Errorf("acquiring build lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return &BuildLock{path: lockPath}, nil
}

// Release removes the build lock.
func (l *BuildLock) Release() {
	if l != nil && l.path != "" {
		os.Remove(l.path)
		l.path = ""
	}
}
