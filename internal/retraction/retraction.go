// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retraction looks up retraction notices for verified references
// through the Crossref update-to chain. The lookup is best-effort: a
// failure here never changes a validation outcome.
package retraction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/refcheck/internal/match"
	"github.com/pdiddy/refcheck/pkg/types"
)

// crossrefWorksBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefWorksBase = "https://api.crossref.org/works"

// Checker queries Crossref for retraction notices.
type Checker struct {
	Client    *http.Client
	UserAgent string
	Mailto    string
}

// Check reports whether the reference has a retraction notice. A DOI is
// looked up directly; without one, the retraction corpus is searched by
// title. A nil result with a nil error means no notice was found.
func (c *Checker) Check(ctx context.Context, ref types.Reference) (*types.RetractionInfo, error) {
	if ref.DOI != "" {
		return c.checkDOI(ctx, ref.DOI)
	}
	return c.checkTitle(ctx, ref.Title)
}

func (c *Checker) checkDOI(ctx context.Context, doi string) (*types.RetractionInfo, error) {
	var resp struct {
		Message crossrefWork `json:"message"`
	}
	if err := c.getJSON(ctx, crossrefWorksBase+"/"+url.PathEscape(doi), &resp); err != nil {
		return nil, err
	}
	return resp.Message.retraction(doi), nil
}

func (c *Checker) checkTitle(ctx context.Context, title string) (*types.RetractionInfo, error) {
	params := url.Values{
		"query.bibliographic": {title},
		"filter":              {"update-type:retraction"},
		"rows":                {"5"},
	}
	var resp struct {
		Message struct {
			Items []crossrefWork `json:"items"`
		} `json:"message"`
	}
	if err := c.getJSON(ctx, crossrefWorksBase+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	// Items here are retraction notices; their update-to entries point at
	// the retracted work, whose title must match the citation.
	for _, item := range resp.Message.Items {
		for _, u := range item.UpdateTo {
			if !isRetractionType(u.Type) {
				continue
			}
			if len(item.Title) > 0 && match.TitlesMatch(title, item.Title[0]) {
				return &types.RetractionInfo{
					DOI:            u.DOI,
					Title:          item.Title[0],
					RetractionDate: u.Updated.time(),
					Reason:         u.Label,
					NoticeSource:   "crossref",
				}, nil
			}
		}
	}
	return nil, nil
}

func (c *Checker) getJSON(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.Mailto != "" {
		q := req.URL.Query()
		q.Set("mailto", c.Mailto)
		req.URL.RawQuery = q.Encode()
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("retraction lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("retraction lookup: HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing retraction response: %w", err)
	}
	return nil
}

type crossrefWork struct {
	Title    []string         `json:"title"`
	UpdateTo []crossrefUpdate `json:"update-to"`
}

type crossrefUpdate struct {
	Type    string       `json:"type"`
	DOI     string       `json:"DOI"`
	Label   string       `json:"label"`
	Updated crossrefDate `json:"updated"`
}

// retraction returns the notice attached to a work fetched by DOI, nil
// when the work carries none.
func (w crossrefWork) retraction(doi string) *types.RetractionInfo {
	for _, u := range w.UpdateTo {
		if !isRetractionType(u.Type) {
			continue
		}
		info := &types.RetractionInfo{
			DOI:            doi,
			RetractionDate: u.Updated.time(),
			Reason:         u.Label,
			NoticeSource:   "crossref",
		}
		if len(w.Title) > 0 {
			info.Title = w.Title[0]
		}
		return info
	}
	return nil
}

func isRetractionType(t string) bool {
	return strings.Contains(strings.ToLower(t), "retraction") || strings.EqualFold(t, "withdrawal")
}

// crossrefDate is Crossref's date-parts structure.
type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crossrefDate) time() time.Time {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return time.Time{}
	}
	p := d.DateParts[0]
	year, month, day := p[0], 1, 1
	if len(p) > 1 {
		month = p[1]
	}
	if len(p) > 2 {
		day = p[2]
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
