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

// webSearcher is the last-resort fallback: a general web search queried
// with the exact title. It confirms existence only, so author evidence
// is never attached to its results.
type webSearcher struct {
	client    *http.Client
	endpoint  string
	apiKey    string
	userAgent string
	notify    func(time.Duration)
}

func (q *webSearcher) Name() string { return "web_search" }

func (q *webSearcher) lookup(ctx context.Context, ref types.Reference) (*record, error) {
	params := url.Values{"q": {`"` + ref.Title + `"`}}

	var headers map[string]string
	if q.apiKey != "" {
		headers = map[string]string{"X-API-Key": q.apiKey}
	}

	var wr webSearchResponse
	if err := getJSON(ctx, q.client, q.endpoint+"?"+params.Encode(), q.userAgent, headers, q.notify, &wr); err != nil {
		return nil, err
	}

	// Search hits decorate titles ("… - ACM", "… | Proceedings"), so the
	// cited title only needs to appear inside the hit, not equal it.
	norm := match.NormalizeTitle(ref.Title)
	if norm == "" {
		return nil, nil
	}
	for _, res := range wr.hits() {
		if strings.Contains(match.NormalizeTitle(res.Title), norm) {
			return &record{title: res.Title}, nil
		}
	}
	return nil, nil
}

type webSearchHit struct {
	Title string `json:"title"`
}

// webSearchResponse tolerates the two result-array spellings common
// across search providers.
type webSearchResponse struct {
	Results        []webSearchHit `json:"results"`
	OrganicResults []webSearchHit `json:"organic_results"`
}

func (r webSearchResponse) hits() []webSearchHit {
	if len(r.Results) > 0 {
		return r.Results
	}
	return r.OrganicResults
}
