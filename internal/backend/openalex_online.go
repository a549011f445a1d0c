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

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

type openAlexQuerier struct {
	client    *http.Client
	userAgent string
	mailto    string
	notify    func(time.Duration)
}

func (q *openAlexQuerier) Name() string { return "openalex" }

func (q *openAlexQuerier) lookup(ctx context.Context, ref types.Reference) (*record, error) {
	params := url.Values{
		"search":   {ref.Title},
		"per-page": {"10"},
	}
	if q.mailto != "" {
		params.Set("mailto", q.mailto)
	}

	var or openAlexResponse
	if err := getJSON(ctx, q.client, openAlexAPIBase+"?"+params.Encode(), q.userAgent, nil, q.notify, &or); err != nil {
		return nil, err
	}

	for _, work := range or.Results {
		if !match.TitlesMatch(ref.Title, work.DisplayName) {
			continue
		}
		var authors []string
		for _, as := range work.Authorships {
			if as.Author.DisplayName != "" {
				authors = append(authors, as.Author.DisplayName)
			}
		}
		return &record{title: work.DisplayName, authors: authors}, nil
	}
	return nil, nil
}

type openAlexResponse struct {
	Results []struct {
		DisplayName string `json:"display_name"`
		Authorships []struct {
			Author struct {
				DisplayName string `json:"display_name"`
			} `json:"author"`
		} `json:"authorships"`
	} `json:"results"`
}
