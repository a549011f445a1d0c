// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/refcheck/internal/match"
	"github.com/pdiddy/refcheck/pkg/types"
)

// semanticScholarAPIBase is the Semantic Scholar paper search endpoint.
// Declared as a var so tests can substitute an httptest server.
var semanticScholarAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

type semanticScholarQuerier struct {
	client    *http.Client
	userAgent string
	apiKey    string
	notify    func(time.Duration)
}

func (q *semanticScholarQuerier) Name() string { return "semantic_scholar" }

func (q *semanticScholarQuerier) lookup(ctx context.Context, ref types.Reference) (*record, error) {
	params := url.Values{
		"query":  {ref.Title},
		"fields": {"title,authors"},
		"limit":  {"10"},
	}

	var headers map[string]string
	if q.apiKey != "" {
		headers = map[string]string{"x-api-key": q.apiKey}
	}

	var sr semanticScholarResponse
	if err := getJSON(ctx, q.client, semanticScholarAPIBase+"?"+params.Encode(), q.userAgent, headers, q.notify, &sr); err != nil {
		return nil, err
	}

	for _, paper := range sr.Data {
		if !match.TitlesMatch(ref.Title, paper.Title) {
			continue
		}
		var authors []string
		for _, a := range paper.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}
		return &record{title: paper.Title, authors: authors}, nil
	}
	return nil, nil
}

type semanticScholarResponse struct {
	Data []struct {
		Title   string `json:"title"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"data"`
}
