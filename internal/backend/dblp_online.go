// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/refcheck/internal/index"
	"github.com/pdiddy/refcheck/internal/match"
	"github.com/pdiddy/refcheck/pkg/types"
)

// dblpAPIBase is the DBLP publication search endpoint. Declared as a var
// so tests can substitute an httptest server.
var dblpAPIBase = "https://dblp.org/search/publ/api"

type dblpQuerier struct {
	client    *http.Client
	userAgent string
	notify    func(time.Duration)
}

func (q *dblpQuerier) Name() string { return "dblp" }

func (q *dblpQuerier) lookup(ctx context.Context, ref types.Reference) (*record, error) {
	words := match.QueryWords(ref.Title, maxQueryWords)
	if len(words) == 0 {
		return nil, nil
	}

	params := url.Values{
		"q":      {strings.Join(words, " ")},
		"format": {"json"},
		"h":      {"10"},
	}

	var dr dblpResponse
	if err := getJSON(ctx, q.client, dblpAPIBase+"?"+params.Encode(), q.userAgent, nil, q.notify, &dr); err != nil {
		return nil, err
	}

	for _, hit := range dr.Result.Hits.Hit {
		if !match.TitlesMatch(ref.Title, hit.Info.Title) {
			continue
		}
		authors := hit.Info.Authors.names()
		// Hits without author data cannot confirm anything; keep looking.
		if len(authors) == 0 {
			continue
		}
		return &record{title: hit.Info.Title, authors: authors}, nil
	}
	return nil, nil
}

type dblpResponse struct {
	Result struct {
		Hits struct {
			Hit []struct {
				Info struct {
					Title   string      `json:"title"`
					Authors dblpAuthors `json:"authors"`
				} `json:"info"`
			} `json:"hit"`
		} `json:"hits"`
	} `json:"result"`
}

// dblpAuthors absorbs DBLP's habit of returning a single author as an
// object and multiple authors as an array.
type dblpAuthors struct {
	Author json.RawMessage `json:"author"`
}

func (a dblpAuthors) names() []string {
	if len(a.Author) == 0 {
		return nil
	}

	type entry struct {
		Text string `json:"text"`
	}
	var names []string
	var many []entry
	if err := json.Unmarshal(a.Author, &many); err == nil {
		for _, e := range many {
			names = appendAuthor(names, e.Text)
		}
		return names
	}
	var one entry
	if err := json.Unmarshal(a.Author, &one); err == nil {
		names = appendAuthor(names, one.Text)
	}
	return names
}

// appendAuthor adds a DBLP author name with its disambiguation suffix
// stripped ("Wei Wang 0001" and "Wei Wang" are the same person).
func appendAuthor(names []string, raw string) []string {
	name := index.StripDBLPSuffix(strings.TrimSpace(raw))
	if name == "" {
		return names
	}
	return append(names, name)
}
