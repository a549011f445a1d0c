// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/refcheck/internal/match"
	"github.com/pdiddy/refcheck/pkg/types"
)

// PubMed E-utilities endpoints. Declared as vars so tests can substitute
// httptest servers.
var (
	pubmedSearchAPIBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedSummaryAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"
)

type pubmedQuerier struct {
	client    *http.Client
	userAgent string
	notify    func(time.Duration)
}

func (q *pubmedQuerier) Name() string { return "pubmed" }

// lookup is a two-step E-utilities flow: esearch resolves the title to
// PMIDs, esummary fetches their metadata.
func (q *pubmedQuerier) lookup(ctx context.Context, ref types.Reference) (*record, error) {
	words := match.QueryWords(ref.Title, maxQueryWords)
	if len(words) == 0 {
		return nil, nil
	}

	searchParams := url.Values{
		"db":      {"pubmed"},
		"term":    {strings.Join(words, " ")},
		"retmode": {"json"},
		"retmax":  {"10"},
	}
	var sr pubmedSearchResponse
	if err := getJSON(ctx, q.client, pubmedSearchAPIBase+"?"+searchParams.Encode(), q.userAgent, nil, q.notify, &sr); err != nil {
		return nil, err
	}
	if len(sr.ESearchResult.IDList) == 0 {
		return nil, nil
	}

	summaryParams := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(sr.ESearchResult.IDList, ",")},
		"retmode": {"json"},
	}
	var sum pubmedSummaryResponse
	if err := getJSON(ctx, q.client, pubmedSummaryAPIBase+"?"+summaryParams.Encode(), q.userAgent, nil, q.notify, &sum); err != nil {
		return nil, err
	}

	for _, uid := range sr.ESearchResult.IDList {
		raw, ok := sum.Result[uid]
		if !ok {
			continue
		}
		// The result map mixes docs with a "uids" index array; skip
		// anything that does not decode as a doc.
		var doc pubmedDoc
		if err := json.Unmarshal(raw, &doc); err != nil || !match.TitlesMatch(ref.Title, doc.Title) {
			continue
		}
		var authors []string
		for _, a := range doc.Authors {
			if name := surnameFirstToName(a.Name); name != "" {
				authors = append(authors, name)
			}
		}
		return &record{title: doc.Title, authors: authors}, nil
	}
	return nil, nil
}

type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedDoc struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}
