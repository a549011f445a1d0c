// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bufio"
	"compress/gzip"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/pdiddy/refcheck/internal/match"
)

// BuildResult summarizes a completed (or skipped) build.
type BuildResult struct {
	SourceName string
	Records    int64
	Skipped    int64
	Path       string

	// UpToDate reports that the build was skipped because the source dump
	// is unchanged since the last build.
	UpToDate bool
}

// Progress is called periodically during a build with running counts.
type Progress func(records, skipped int64)

// buildClock supplies build timestamps. Tests override it to exercise
// staleness ages deterministically.
var buildClock = func() time.Time { return time.Now().UTC() }

// progressInterval is how many accepted records pass between progress
// callbacks.
const progressInterval = 100_000

// openDump opens a dump file, transparently decompressing .gz and .xz.
func openDump(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump %s: %w", path, err)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(bufio.NewReaderSize(f, 1<<20))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("reading gzip dump %s: %w", path, err)
		}
		return &dumpReader{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case strings.HasSuffix(path, ".xz"):
		xr, err := xz.NewReader(bufio.NewReaderSize(f, 1<<20))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("reading xz dump %s: %w", path, err)
		}
		return &dumpReader{Reader: xr, closers: []io.Closer{f}}, nil
	default:
		return &dumpReader{Reader: bufio.NewReaderSize(f, 1<<20), closers: []io.Closer{f}}, nil
	}
}

type dumpReader struct {
	io.Reader
	closers []io.Closer
}

func (d *dumpReader) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// checksumFile returns the BLAKE3 hex digest of a file. Builders store it
// in the index metadata so a rebuild from an unchanged dump can be
// skipped.
func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for checksum: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// storedChecksum reads the source checksum of an existing index, or ""
// when the index does not exist or carries none.
func storedChecksum(indexPath string) string {
	store, err := Open(indexPath)
	if err != nil {
		return ""
	}
	defer store.Close()
	m, err := store.Metadata()
	if err != nil {
		return ""
	}
	return m.SourceChecksum
}

// build manages one index build: exclusive lock, temp database, and the
// final atomic swap. The previous index file stays untouched and readable
// until finish renames the temp file over it.
type build struct {
	indexPath string
	tmpPath   string
	db        *sql.DB
	lock      *BuildLock
}

// beginBuild acquires the build lock and opens a fresh temp database.
// When copyExisting is set and an index already exists, the temp database
// starts as a copy of it (incremental merge).
func beginBuild(indexPath string, copyExisting bool) (*build, error) {
	lock, err := AcquireBuild(indexPath)
	if err != nil {
		return nil, err
	}

	tmpPath := indexPath + ".building"
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		lock.Release()
		return nil, fmt.Errorf("clearing stale temp index: %w", err)
	}

	if copyExisting {
		if err := copyFile(indexPath, tmpPath); err != nil && !os.IsNotExist(err) {
			lock.Release()
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", tmpPath)
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("opening temp index %s: %w", tmpPath, err)
	}
	// One connection keeps the bulk-load pragmas in effect for every
	// statement of the build.
	db.SetMaxOpenConns(1)
	if err := createSchema(db); err != nil {
		db.Close()
		os.Remove(tmpPath)
		lock.Release()
		return nil, err
	}

	return &build{indexPath: indexPath, tmpPath: tmpPath, db: db, lock: lock}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

// finish writes the metadata, checkpoints, and atomically swaps the temp
// database into place.
func (b *build) finish(m Metadata) error {
	if err := writeMetadata(b.db, m); err != nil {
		b.abort()
		return err
	}
	// Fold the WAL back into the main file so the rename moves everything.
	if _, err := b.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		b.abort()
		return fmt.Errorf("checkpointing index: %w", err)
	}
	if err := b.db.Close(); err != nil {
		b.lock.Release()
		return fmt.Errorf("closing temp index: %w", err)
	}
	b.db = nil

	if err := os.Rename(b.tmpPath, b.indexPath); err != nil {
		b.lock.Release()
		return fmt.Errorf("swapping index into place: %w", err)
	}
	b.lock.Release()
	return nil
}

// abort discards the temp database. The previous index, if any, is left
// untouched.
func (b *build) abort() {
	if b.db != nil {
		b.db.Close()
		b.db = nil
	}
	os.Remove(b.tmpPath)
	b.lock.Release()
}

// batcher accumulates work records and flushes them in one transaction
// per batch.
type batcher struct {
	db      *sql.DB
	size    int
	pending []Record
}

func newBatcher(db *sql.DB, size int) *batcher {
	if size <= 0 {
		size = 10000
	}
	return &batcher{db: db, size: size}
}

// add queues a record, flushing when the batch is full.
func (bt *batcher) add(r Record) error {
	bt.pending = append(bt.pending, r)
	if len(bt.pending) >= bt.size {
		return bt.flush()
	}
	return nil
}

// flush writes all pending records inside a single transaction. Records
// upsert by source key so incremental merges replace stale rows.
func (bt *batcher) flush() error {
	if len(bt.pending) == 0 {
		return nil
	}

	tx, err := bt.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO works (source_key, title, norm_title, authors, venue, year)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_key) DO UPDATE SET
			title = excluded.title,
			norm_title = excluded.norm_title,
			authors = excluded.authors,
			venue = excluded.venue,
			year = excluded.year`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}

	for _, r := range bt.pending {
		var venue any
		if r.Venue != "" {
			venue = r.Venue
		}
		var year any
		if r.Year != 0 {
			year = r.Year
		}
		if _, err := stmt.Exec(r.SourceKey, r.Title, match.NormalizeTitle(r.Title),
			strings.Join(r.Authors, "|"), venue, year); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("inserting %s: %w", r.SourceKey, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	bt.pending = bt.pending[:0]
	return nil
}

func countWorks(db *sql.DB) (int64, error) {
	var n int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM works`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}
