// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/refcheck/internal/match"
)

// Record is one indexed publication.
type Record struct {
	SourceKey string
	Title     string
	Authors   []string
	Venue     string
	Year      int
}

// Store is a read-only handle on a built index. Safe for concurrent use;
// database/sql serializes access to the underlying connections.
type Store struct {
	db     *sql.DB
	path   string
	reader *ReaderLock
}

// Open opens an existing index read-only and registers a reader marker so
// builders refuse to overwrite it mid-run.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("offline index not found at %s: %w", path, err)
	}

	reader, err := AcquireReader(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		reader.Release()
		return nil, fmt.Errorf("opening index %s: %w", path, err)
	}

	return &Store{db: db, path: path, reader: reader}, nil
}

// Close releases the database connection and the reader marker.
func (s *Store) Close() error {
	s.reader.Release()
	return s.db.Close()
}

// Path returns the index file location.
func (s *Store) Path() string { return s.path }

// Metadata returns the index's embedded build metadata.
func (s *Store) Metadata() (Metadata, error) {
	return readMetadata(s.db)
}

// lookupLimit bounds how many FTS candidates a single title lookup pulls.
const lookupLimit = 50

// Lookup finds records whose normalized title exactly matches the given
// title. Candidate retrieval goes through the FTS index; the exact
// comparison happens here because FTS matching is token-based.
func (s *Store) Lookup(title string) ([]Record, error) {
	norm := match.NormalizeTitle(title)
	if norm == "" {
		return nil, nil
	}

	rows, err := s.db.Query(
		`SELECT w.source_key, w.title, w.authors, w.venue, w.year
		 FROM works w
		 WHERE w.id IN (SELECT rowid FROM works_fts WHERE works_fts MATCH ? LIMIT ?)`,
		ftsQuery(norm), lookupLimit)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var authors string
		var venue sql.NullString
		var year sql.NullInt64
		if err := rows.Scan(&r.SourceKey, &r.Title, &authors, &venue, &year); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		if match.NormalizeTitle(r.Title) != norm {
			continue
		}
		if authors != "" {
			r.Authors = strings.Split(authors, "|")
		}
		r.Venue = venue.String
		r.Year = int(year.Int64)
		records = append(records, r)
	}
	return records, rows.Err()
}

// ftsQuery turns a normalized title into an FTS5 match expression. Each
// word is quoted so titles containing FTS operators (AND, NEAR, *) query
// literally.
func ftsQuery(norm string) string {
	words := strings.Fields(norm)
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, " ")
}

// createSchema initializes a build-side database.
func createSchema(db *sql.DB) error {
	statements := []string{
		`PRAGMA page_size = 8192`,
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = OFF`,
		`CREATE TABLE IF NOT EXISTS works (
			id INTEGER PRIMARY KEY,
			source_key TEXT UNIQUE NOT NULL,
			title TEXT NOT NULL,
			norm_title TEXT NOT NULL,
			authors TEXT NOT NULL DEFAULT '',
			venue TEXT,
			year INTEGER
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS works_fts USING fts5(
			norm_title,
			content='works',
			content_rowid='id'
		)`,
		`CREATE TRIGGER IF NOT EXISTS works_ai AFTER INSERT ON works BEGIN
			INSERT INTO works_fts(rowid, norm_title) VALUES (new.id, new.norm_title);
		END`,
		`CREATE TRIGGER IF NOT EXISTS works_ad AFTER DELETE ON works BEGIN
			INSERT INTO works_fts(works_fts, rowid, norm_title) VALUES('delete', old.id, old.norm_title);
		END`,
		`CREATE TRIGGER IF NOT EXISTS works_au AFTER UPDATE ON works BEGIN
			INSERT INTO works_fts(works_fts, rowid, norm_title) VALUES('delete', old.id, old.norm_title);
			INSERT INTO works_fts(rowid, norm_title) VALUES (new.id, new.norm_title);
		END`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
