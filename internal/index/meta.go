// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index builds and queries offline SQLite indexes of bulk
// academic datasets (DBLP, ACL Anthology, OpenAlex). Builders stream
// multi-gigabyte dumps into an FTS5-indexed store; validation opens the
// result read-only through the same lookup API for every source.
package index

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Metadata keys stored in the meta table. Every index is self-describing:
// staleness and status queries never re-parse the data itself.
const (
	metaSourceName     = "source_name"
	metaBuiltAt        = "built_at"
	metaRecordCount    = "record_count"
	metaSkippedCount   = "skipped_count"
	metaBuildParams    = "build_params"
	metaSchemaVersion  = "schema_version"
	metaSourceChecksum = "source_checksum"
	metaLastSyncDate   = "last_sync_date"
)

const schemaVersion = "1"

// Metadata describes one built index.
type Metadata struct {
	SourceName     string
	BuiltAt        time.Time
	RecordCount    int64
	SkippedCount   int64
	BuildParams    string
	SourceChecksum string
	LastSyncDate   string
}

func readMetadata(db *sql.DB) (Metadata, error) {
	rows, err := db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return Metadata{}, fmt.Errorf("reading index metadata: %w", err)
	}
	defer rows.Close()

	var m Metadata
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Metadata{}, fmt.Errorf("scanning metadata row: %w", err)
		}
		switch key {
		case metaSourceName:
			m.SourceName = value
		case metaBuiltAt:
			if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
				m.BuiltAt = time.Unix(secs, 0).UTC()
			}
		case metaRecordCount:
			m.RecordCount, _ = strconv.ParseInt(value, 10, 64)
		case metaSkippedCount:
			m.SkippedCount, _ = strconv.ParseInt(value, 10, 64)
		case metaBuildParams:
			m.BuildParams = value
		case metaSourceChecksum:
			m.SourceChecksum = value
		case metaLastSyncDate:
			m.LastSyncDate = value
		}
	}
	return m, rows.Err()
}

func setMeta(db *sql.DB, key, value string) error {
	_, err := db.Exec(
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("setting metadata %s: %w", key, err)
	}
	return nil
}

func writeMetadata(db *sql.DB, m Metadata) error {
	pairs := map[string]string{
		metaSourceName:    m.SourceName,
		metaBuiltAt:       strconv.FormatInt(m.BuiltAt.Unix(), 10),
		metaRecordCount:   strconv.FormatInt(m.RecordCount, 10),
		metaSkippedCount:  strconv.FormatInt(m.SkippedCount, 10),
		metaBuildParams:   m.BuildParams,
		metaSchemaVersion: schemaVersion,
	}
	if m.SourceChecksum != "" {
		pairs[metaSourceChecksum] = m.SourceChecksum
	}
	if m.LastSyncDate != "" {
		pairs[metaLastSyncDate] = m.LastSyncDate
	}
	for k, v := range pairs {
		if err := setMeta(db, k, v); err != nil {
			return err
		}
	}
	return nil
}

// Staleness reports an index's age against the freshness threshold.
type Staleness struct {
	Path        string
	SourceName  string
	BuiltAt     time.Time
	Age         time.Duration
	IsStale     bool
	RecordCount int64
	BuildParams string
}

// CheckStaleness reads an index's metadata and compares its age at `now`
// against the threshold. It never modifies the index.
func CheckStaleness(path string, threshold time.Duration, now time.Time) (Staleness, error) {
	store, err := Open(path)
	if err != nil {
		return Staleness{}, err
	}
	defer store.Close()

	m, err := store.Metadata()
	if err != nil {
		return Staleness{}, err
	}

	s := Staleness{
		Path:        path,
		SourceName:  m.SourceName,
		BuiltAt:     m.BuiltAt,
		RecordCount: m.RecordCount,
		BuildParams: m.BuildParams,
	}
	if m.BuiltAt.IsZero() {
		// No build timestamp recorded: treat as stale so the user rebuilds.
		s.IsStale = true
		return s, nil
	}
	s.Age = now.Sub(m.BuiltAt)
	s.IsStale = s.Age > threshold
	return s, nil
}
