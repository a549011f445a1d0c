// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bufio"
	"database/sql"
	"fmt"
	"strings"
)

// DBLP RDF predicates carrying the facts we index.
const (
	dblpTitle       = "https://dblp.org/rdf/schema#title"
	dblpDCTitle     = "http://purl.org/dc/terms/title"
	dblpAuthoredBy  = "https://dblp.org/rdf/schema#authoredBy"
	dblpPrimaryName = "https://dblp.org/rdf/schema#primaryCreatorName"
	dblpCreatorName = "https://dblp.org/rdf/schema#creatorName"
)

// BuildDBLP streams a DBLP N-Triples dump (.nt, .nt.gz, or .nt.xz) into
// an offline index at indexPath. Titles, author names, and authorship
// edges arrive as independent triples in arbitrary order, so they are
// staged in side tables and joined into the final works table at the end.
// Malformed lines are counted and skipped; the build aborts only on I/O
// or database failure. The previous index stays live until the new one is
// swapped in.
func BuildDBLP(indexPath, dumpPath string, batchSize int, progress Progress) (BuildResult, error) {
	result := BuildResult{SourceName: "dblp", Path: indexPath}

	sum, err := checksumFile(dumpPath)
	if err != nil {
		return result, err
	}
	if prev := storedChecksum(indexPath); prev != "" && prev == sum {
		result.UpToDate = true
		return result, nil
	}

	b, err := beginBuild(indexPath, false)
	if err != nil {
		return result, err
	}
	if err := createDBLPStaging(b.db); err != nil {
		b.abort()
		return result, err
	}

	dump, err := openDump(dumpPath)
	if err != nil {
		b.abort()
		return result, err
	}
	defer dump.Close()

	st := dblpStage{db: b.db, size: batchSize}
	scanner := bufio.NewScanner(dump)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)

	var lines, skipped int64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines++

		t, ok := parseTriple(line)
		if !ok {
			skipped++
			continue
		}

		switch t.predicate {
		case dblpTitle, dblpDCTitle:
			if !t.objectIsURI {
				st.titles = append(st.titles, [2]string{t.subject, t.object})
			}
		case dblpAuthoredBy:
			if t.objectIsURI {
				st.edges = append(st.edges, [2]string{t.subject, t.object})
			}
		case dblpPrimaryName, dblpCreatorName:
			if !t.objectIsURI {
				st.names = append(st.names, [2]string{t.subject, t.object})
			}
		}

		if st.full() {
			if err := st.flush(); err != nil {
				b.abort()
				return result, err
			}
		}
		if progress != nil && lines%progressInterval == 0 {
			progress(lines, skipped)
		}
	}
	if err := scanner.Err(); err != nil {
		b.abort()
		return result, fmt.Errorf("reading dump: %w", err)
	}
	if err := st.flush(); err != nil {
		b.abort()
		return result, err
	}

	if err := materializeDBLP(b.db); err != nil {
		b.abort()
		return result, err
	}

	records, err := countWorks(b.db)
	if err != nil {
		b.abort()
		return result, err
	}
	result.Records = records
	result.Skipped = skipped

	err = b.finish(Metadata{
		SourceName:     "dblp",
		BuiltAt:        buildClock(),
		RecordCount:    records,
		SkippedCount:   skipped,
		SourceChecksum: sum,
	})
	return result, err
}

func createDBLPStaging(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE dblp_pubs (subj TEXT PRIMARY KEY, title TEXT NOT NULL)`,
		`CREATE TABLE dblp_names (subj TEXT PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE dblp_edges (pub TEXT NOT NULL, author TEXT NOT NULL,
			PRIMARY KEY (pub, author))`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating staging table: %w", err)
		}
	}
	return nil
}

// dblpStage buffers parsed triples and flushes them in one transaction.
type dblpStage struct {
	db     *sql.DB
	size   int
	titles [][2]string
	names  [][2]string
	edges  [][2]string
}

func (s *dblpStage) full() bool {
	size := s.size
	if size <= 0 {
		size = 10000
	}
	return len(s.titles)+len(s.names)+len(s.edges) >= size
}

func (s *dblpStage) flush() error {
	if len(s.titles)+len(s.names)+len(s.edges) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning staging transaction: %w", err)
	}

	inserts := []struct {
		stmt string
		rows [][2]string
	}{
		{`INSERT INTO dblp_pubs (subj, title) VALUES (?, ?)
			ON CONFLICT(subj) DO UPDATE SET title = excluded.title`, s.titles},
		{`INSERT INTO dblp_names (subj, name) VALUES (?, ?)
			ON CONFLICT(subj) DO UPDATE SET name = excluded.name`, s.names},
		{`INSERT OR IGNORE INTO dblp_edges (pub, author) VALUES (?, ?)`, s.edges},
	}
	for _, ins := range inserts {
		if len(ins.rows) == 0 {
			continue
		}
		stmt, err := tx.Prepare(ins.stmt)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("preparing staging insert: %w", err)
		}
		for _, row := range ins.rows {
			if _, err := stmt.Exec(row[0], row[1]); err != nil {
				stmt.Close()
				tx.Rollback()
				return fmt.Errorf("staging insert: %w", err)
			}
		}
		stmt.Close()
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing staging batch: %w", err)
	}

	s.titles = s.titles[:0]
	s.names = s.names[:0]
	s.edges = s.edges[:0]
	return nil
}

// materializeDBLP joins the staged triples into the works table and drops
// the staging tables. The normalized title is computed row by row in Go
// because SQLite has no matching collation.
func materializeDBLP(db *sql.DB) error {
	rows, err := db.Query(
		`SELECT p.subj, p.title,
			COALESCE((SELECT group_concat(n.name, '|')
				FROM dblp_edges e JOIN dblp_names n ON n.subj = e.author
				WHERE e.pub = p.subj), '')
		 FROM dblp_pubs p`)
	if err != nil {
		return fmt.Errorf("joining staged publications: %w", err)
	}

	bt := newBatcher(db, 0)
	for rows.Next() {
		var subj, title, authors string
		if err := rows.Scan(&subj, &title, &authors); err != nil {
			rows.Close()
			return fmt.Errorf("scanning staged publication: %w", err)
		}
		rec := Record{SourceKey: subj, Title: title}
		if authors != "" {
			for _, a := range strings.Split(authors, "|") {
				rec.Authors = append(rec.Authors, StripDBLPSuffix(a))
			}
		}
		if err := bt.add(rec); err != nil {
			rows.Close()
			return err
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterating staged publications: %w", err)
	}
	rows.Close()
	if err := bt.flush(); err != nil {
		return err
	}

	for _, tbl := range []string{"dblp_edges", "dblp_names", "dblp_pubs"} {
		if _, err := db.Exec(`DROP TABLE ` + tbl); err != nil {
			return fmt.Errorf("dropping staging table %s: %w", tbl, err)
		}
	}
	return nil
}

// StripDBLPSuffix removes DBLP's 4-digit author disambiguation suffix
// (e.g. "Wei Wang 0042" becomes "Wei Wang").
// See https://dblp.org/faq/1474704.html.
func StripDBLPSuffix(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > 5 {
		suffix := name[len(name)-5:]
		if suffix[0] == ' ' && len(strings.TrimLeft(suffix[1:], "0123456789")) == 0 {
			return name[:len(name)-5]
		}
	}
	return name
}

// triple is one parsed N-Triples statement.
type triple struct {
	subject     string
	predicate   string
	object      string
	objectIsURI bool
}

// parseTriple parses a single N-Triples line: `<subj> <pred> <obj> .`
// where the object is either a URI or a quoted literal with an optional
// datatype or language tag.
func parseTriple(line string) (triple, bool) {
	var t triple

	subj, rest, ok := parseURI(line)
	if !ok {
		return t, false
	}
	pred, rest, ok := parseURI(rest)
	if !ok {
		return t, false
	}

	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return t, false
	}

	var obj string
	switch rest[0] {
	case '<':
		obj, rest, ok = parseURI(rest)
		if !ok {
			return t, false
		}
		t.objectIsURI = true
	case '"':
		obj, rest, ok = parseLiteral(rest)
		if !ok {
			return t, false
		}
	default:
		return t, false
	}

	// The statement must end with a dot.
	if !strings.HasPrefix(strings.TrimLeft(rest, " \t"), ".") {
		return t, false
	}

	t.subject = subj
	t.predicate = pred
	t.object = obj
	return t, true
}

// parseURI consumes a leading `<...>` token.
func parseURI(s string) (string, string, bool) {
	s = strings.TrimLeft(s, " \t")
	if !strings.HasPrefix(s, "<") {
		return "", "", false
	}
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return "", "", false
	}
	return s[1:end], s[end+1:], true
}

// parseLiteral consumes a leading quoted literal, handling backslash
// escapes and skipping any ^^datatype or @lang suffix.
func parseLiteral(s string) (string, string, bool) {
	if !strings.HasPrefix(s, `"`) {
		return "", "", false
	}
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(s[i+1])
			}
			i += 2
			continue
		}
		if c == '"' {
			rest := s[i+1:]
			// Skip ^^<type> or @lang.
			if strings.HasPrefix(rest, "^^") {
				if _, after, ok := parseURI(rest[2:]); ok {
					rest = after
				}
			} else if strings.HasPrefix(rest, "@") {
				if sp := strings.IndexAny(rest, " \t"); sp >= 0 {
					rest = rest[sp:]
				} else {
					rest = ""
				}
			}
			return b.String(), rest, true
		}
		b.WriteByte(c)
		i++
	}
	return "", "", false
}
