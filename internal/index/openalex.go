// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Work types worth indexing; datasets, grants, and similar records can
// never match a citation.
var openAlexAllowedTypes = map[string]struct{}{
	"article":      {},
	"book-chapter": {},
	"preprint":     {},
	"review":       {},
	"dissertation": {},
}

// OpenAlexOptions scope an OpenAlex build.
type OpenAlexOptions struct {
	// MinYear drops works published before this year (0 keeps all).
	MinYear int

	// Since ingests only snapshot partitions dated strictly after this
	// YYYY-MM-DD cutoff, merging into the existing index. Empty falls
	// back to the last sync date recorded in the index, or a full build
	// when none exists.
	Since string

	BatchSize int
	Progress  Progress
}

// BuildOpenAlex indexes an OpenAlex works snapshot: a directory of
// updated_date=YYYY-MM-DD partitions holding gzipped JSON Lines files, a
// flat directory of such files, or a single file. Incremental updates
// merge into a copy of the live index; the swap is atomic either way.
func BuildOpenAlex(indexPath, snapshotPath string, opts OpenAlexOptions) (BuildResult, error) {
	result := BuildResult{SourceName: "openalex", Path: indexPath}

	indexExists := fileExists(indexPath)

	cutoff := opts.Since
	if cutoff == "" && indexExists {
		cutoff = storedLastSync(indexPath)
	}

	partitions, err := listPartitions(snapshotPath, cutoff)
	if err != nil {
		return result, err
	}
	if len(partitions) == 0 {
		result.UpToDate = true
		return result, nil
	}

	incremental := indexExists && cutoff != ""
	b, err := beginBuild(indexPath, incremental)
	if err != nil {
		return result, err
	}

	bt := newBatcher(b.db, opts.BatchSize)
	var records, skipped int64
	newestDate := cutoff

	for _, part := range partitions {
		if part.date > newestDate {
			newestDate = part.date
		}
		for _, file := range part.files {
			r, s, err := ingestOpenAlexFile(bt, file, opts.MinYear)
			records += r
			skipped += s
			if err != nil {
				b.abort()
				return result, err
			}
			if opts.Progress != nil {
				opts.Progress(records, skipped)
			}
		}
	}
	if err := bt.flush(); err != nil {
		b.abort()
		return result, err
	}

	total, err := countWorks(b.db)
	if err != nil {
		b.abort()
		return result, err
	}
	result.Records = total
	result.Skipped = skipped

	var params []string
	if opts.MinYear > 0 {
		params = append(params, "min_year="+strconv.Itoa(opts.MinYear))
	}
	if cutoff != "" {
		params = append(params, "since="+cutoff)
	}

	err = b.finish(Metadata{
		SourceName:   "openalex",
		BuiltAt:      buildClock(),
		RecordCount:  total,
		SkippedCount: skipped,
		BuildParams:  strings.Join(params, " "),
		LastSyncDate: newestDate,
	})
	return result, err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func storedLastSync(indexPath string) string {
	store, err := Open(indexPath)
	if err != nil {
		return ""
	}
	defer store.Close()
	m, err := store.Metadata()
	if err != nil {
		return ""
	}
	return m.LastSyncDate
}

// partition is one dated slice of the snapshot.
type partition struct {
	date  string
	files []string
}

// listPartitions enumerates snapshot files, keeping only partitions dated
// after the cutoff. Undated layouts (a flat directory or a single file)
// form one undated partition that a cutoff excludes entirely.
func listPartitions(snapshotPath, cutoff string) ([]partition, error) {
	info, err := os.Stat(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", snapshotPath, err)
	}

	if !info.IsDir() {
		if cutoff != "" {
			return nil, nil
		}
		return []partition{{files: []string{snapshotPath}}}, nil
	}

	entries, err := os.ReadDir(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot %s: %w", snapshotPath, err)
	}

	var parts []partition
	var flat []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() && strings.HasPrefix(name, "updated_date=") {
			date := strings.TrimPrefix(name, "updated_date=")
			if cutoff != "" && date <= cutoff {
				continue
			}
			files, err := listDataFiles(filepath.Join(snapshotPath, name))
			if err != nil {
				return nil, err
			}
			if len(files) > 0 {
				parts = append(parts, partition{date: date, files: files})
			}
			continue
		}
		if !e.IsDir() && isDataFile(name) {
			flat = append(flat, filepath.Join(snapshotPath, name))
		}
	}

	if len(parts) == 0 && len(flat) > 0 && cutoff == "" {
		parts = append(parts, partition{files: flat})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].date < parts[j].date })
	return parts, nil
}

func listDataFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing partition %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isDataFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isDataFile(name string) bool {
	return strings.HasSuffix(name, ".gz") || strings.HasSuffix(name, ".jsonl") ||
		strings.HasSuffix(name, ".json")
}

// ingestOpenAlexFile streams one JSON Lines file into the batcher.
func ingestOpenAlexFile(bt *batcher, path string, minYear int) (records, skipped int64, err error) {
	f, err := openDump(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 16<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, ok := parseOpenAlexWork(line, minYear)
		if !ok {
			skipped++
			continue
		}
		if err := bt.add(rec); err != nil {
			return records, skipped, err
		}
		records++
	}
	if err := scanner.Err(); err != nil {
		return records, skipped, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, skipped, nil
}

type openAlexWork struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	Type            string `json:"type"`
	PublicationYear int    `json:"publication_year"`
	Authorships     []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
}

// parseOpenAlexWork converts one snapshot line into a Record. Filtered
// work types and pre-MinYear works return false without counting as
// malformed upstream; the caller treats any false as a skip.
func parseOpenAlexWork(line string, minYear int) (Record, bool) {
	var w openAlexWork
	if err := json.Unmarshal([]byte(line), &w); err != nil {
		return Record{}, false
	}
	if _, ok := openAlexAllowedTypes[w.Type]; !ok {
		return Record{}, false
	}
	if minYear > 0 && w.PublicationYear < minYear {
		return Record{}, false
	}
	if w.DisplayName == "" {
		return Record{}, false
	}

	// "https://openalex.org/W2741809807" carries the stable work ID.
	id := w.ID[strings.LastIndex(w.ID, "/")+1:]
	if !strings.HasPrefix(id, "W") {
		return Record{}, false
	}

	rec := Record{
		SourceKey: "openalex/" + id,
		Title:     w.DisplayName,
		Year:      w.PublicationYear,
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			rec.Authors = append(rec.Authors, a.Author.DisplayName)
		}
	}
	return rec, true
}
