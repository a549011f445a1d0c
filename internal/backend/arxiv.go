// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/refcheck/internal/match"
	"github.com/pdiddy/refcheck/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

type arxivQuerier struct {
	client    *http.Client
	userAgent string
	notify    func(time.Duration)
}

func (q *arxivQuerier) Name() string { return "arxiv" }

func (q *arxivQuerier) lookup(ctx context.Context, ref types.Reference) (*record, error) {
	words := match.QueryWords(ref.Title, maxQueryWords)
	if len(words) == 0 {
		return nil, nil
	}

	var parts []string
	for _, w := range words {
		parts = append(parts, "all:"+url.QueryEscape(w))
	}
	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=10&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, strings.Join(parts, "+AND+"))

	resp, err := doGet(ctx, q.client, reqURL, q.userAgent, nil, q.notify)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	for _, entry := range feed.Entries {
		title := strings.TrimSpace(entry.Title)
		if !match.TitlesMatch(ref.Title, title) {
			continue
		}
		var authors []string
		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				authors = append(authors, name)
			}
		}
		return &record{title: title, authors: authors}, nil
	}
	return nil, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title   string        `xml:"title"`
	Authors []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}
