// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// BuildACL streams an ACL Anthology XML dump (.xml, .xml.gz, or .xml.xz)
// into an offline index at indexPath. The parser streams <paper> elements
// one at a time, so the dump is never held in memory. Papers without a
// usable title are counted and skipped.
func BuildACL(indexPath, dumpPath string, batchSize int, progress Progress) (BuildResult, error) {
	result := BuildResult{SourceName: "acl", Path: indexPath}

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

	dump, err := openDump(dumpPath)
	if err != nil {
		b.abort()
		return result, err
	}
	defer dump.Close()

	parser, err := xmlquery.CreateStreamParser(dump, "//paper")
	if err != nil {
		b.abort()
		return result, fmt.Errorf("creating XML stream parser: %w", err)
	}

	bt := newBatcher(b.db, batchSize)
	var records, skipped int64
	var seq int64

	for {
		node, err := parser.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			b.abort()
			return result, fmt.Errorf("parsing dump: %w", err)
		}

		seq++
		rec, ok := aclPaperRecord(node, seq)
		if !ok {
			skipped++
			continue
		}
		if err := bt.add(rec); err != nil {
			b.abort()
			return result, err
		}
		records++
		if progress != nil && records%progressInterval == 0 {
			progress(records, skipped)
		}
	}
	if err := bt.flush(); err != nil {
		b.abort()
		return result, err
	}

	result.Records = records
	result.Skipped = skipped

	err = b.finish(Metadata{
		SourceName:     "acl",
		BuiltAt:        buildClock(),
		RecordCount:    records,
		SkippedCount:   skipped,
		SourceChecksum: sum,
	})
	return result, err
}

// aclPaperRecord extracts (title, authors, venue, year) from one <paper>
// element.
func aclPaperRecord(paper *xmlquery.Node, seq int64) (Record, bool) {
	titleNode := xmlquery.FindOne(paper, "title")
	if titleNode == nil {
		return Record{}, false
	}
	title := strings.TrimSpace(titleNode.InnerText())
	if title == "" {
		return Record{}, false
	}

	rec := Record{Title: title}

	key := paper.SelectAttr("id")
	if key == "" {
		key = strconv.FormatInt(seq, 10)
	}
	rec.SourceKey = "acl/" + key

	for _, author := range xmlquery.Find(paper, "author") {
		first := xmlquery.FindOne(author, "first")
		last := xmlquery.FindOne(author, "last")
		var name string
		if first != nil || last != nil {
			var parts []string
			if first != nil && strings.TrimSpace(first.InnerText()) != "" {
				parts = append(parts, strings.TrimSpace(first.InnerText()))
			}
			if last != nil && strings.TrimSpace(last.InnerText()) != "" {
				parts = append(parts, strings.TrimSpace(last.InnerText()))
			}
			name = strings.Join(parts, " ")
		} else {
			name = strings.TrimSpace(author.InnerText())
		}
		if name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}

	if v := xmlquery.FindOne(paper, "booktitle"); v != nil {
		rec.Venue = strings.TrimSpace(v.InnerText())
	}
	if y := xmlquery.FindOne(paper, "year"); y != nil {
		if year, err := strconv.Atoi(strings.TrimSpace(y.InnerText())); err == nil {
			rec.Year = year
		}
	}
	return rec, true
}
