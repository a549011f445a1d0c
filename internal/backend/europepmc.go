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

// europePMCAPIBase is the Europe PMC REST search endpoint. Declared as a
// var so tests can substitute an httptest server.
var europePMCAPIBase = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"

type europePMCQuerier struct {
	client    *http.Client
	userAgent string
	notify    func(time.Duration)
}

func (q *europePMCQuerier) Name() string { return "europe_pmc" }

func (q *europePMCQuerier) lookup(ctx context.Context, ref types.Reference) (*record, error) {
	words := match.QueryWords(ref.Title, maxQueryWords)
	if len(words) == 0 {
		return nil, nil
	}

	params := url.Values{
		"query":    {strings.Join(words, " ")},
		"format":   {"json"},
		"pageSize": {"10"},
	}

	var er europePMCResponse
	if err := getJSON(ctx, q.client, europePMCAPIBase+"?"+params.Encode(), q.userAgent, nil, q.notify, &er); err != nil {
		return nil, err
	}

	for _, res := range er.ResultList.Result {
		if !match.TitlesMatch(ref.Title, res.Title) {
			continue
		}
		var authors []string
		for _, a := range strings.Split(res.AuthorString, ",") {
			if name := surnameFirstToName(a); name != "" {
				authors = append(authors, name)
			}
		}
		return &record{title: res.Title, authors: authors}, nil
	}
	return nil, nil
}

type europePMCResponse struct {
	ResultList struct {
		Result []struct {
			Title        string `json:"title"`
			AuthorString string `json:"authorString"`
		} `json:"result"`
	} `json:"resultList"`
}

// surnameFirstToName converts the "Surname Initials" form PubMed-family
// sources use ("Vaswani A.") into "Initials Surname" so surname
// extraction sees the family name last. Names without a trailing
// initials token pass through unchanged.
func surnameFirstToName(raw string) string {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), ".")
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return raw
	}

	last := fields[len(fields)-1]
	if !looksLikeInitials(last) {
		return strings.Join(fields, " ")
	}
	reordered := append([]string{last}, fields[:len(fields)-1]...)
	return strings.Join(reordered, " ")
}

// looksLikeInitials reports whether a token is an initials block such as
// "A", "JM", or "A.B.".
func looksLikeInitials(tok string) bool {
	tok = strings.ReplaceAll(tok, ".", "")
	if tok == "" || len(tok) > 3 {
		return false
	}
	for _, r := range tok {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
