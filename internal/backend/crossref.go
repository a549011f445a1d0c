// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/refcheck/internal/match"
	"github.com/pdiddy/refcheck/pkg/types"
)

// crossrefAPIBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

type crossrefQuerier struct {
	client    *http.Client
	userAgent string
	mailto    string
	notify    func(time.Duration)
}

func (q *crossrefQuerier) Name() string { return "crossref" }

func (q *crossrefQuerier) lookup(ctx context.Context, ref types.Reference) (*record, error) {
	params := url.Values{
		"query.bibliographic": {ref.Title},
		"rows":                {"5"},
	}
	if q.mailto != "" {
		params.Set("mailto", q.mailto)
	}

	var cr crossrefResponse
	if err := getJSON(ctx, q.client, crossrefAPIBase+"?"+params.Encode(), q.userAgent, nil, q.notify, &cr); err != nil {
		return nil, err
	}

	for _, item := range cr.Message.Items {
		if len(item.Title) == 0 || !match.TitlesMatch(ref.Title, item.Title[0]) {
			continue
		}
		var authors []string
		for _, a := range item.Author {
			name := strings.TrimSpace(a.Given + " " + a.Family)
			if name != "" {
				authors = append(authors, name)
			}
		}
		return &record{title: item.Title[0], authors: authors}, nil
	}
	return nil, nil
}

type crossrefResponse struct {
	Message struct {
		Items []struct {
			Title  []string `json:"title"`
			Author []struct {
				Given  string `json:"given"`
				Family string `json:"family"`
			} `json:"author"`
		} `json:"items"`
	} `json:"message"`
}
