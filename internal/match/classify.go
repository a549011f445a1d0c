// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"github.com/pdiddy/refcheck/pkg/types"
)

// minTitleWords is the smallest normalized title length worth querying.
// Shorter titles match too many unrelated records to be meaningful.
const minTitleWords = 5

// Prefilter decides whether a reference should be dispatched at all. It
// returns the skip status and true when the reference must not be queried.
func Prefilter(ref types.Reference) (types.FinalStatus, bool) {
	if IsBareURL(ref.RawText) {
		return types.StatusSkippedURL, true
	}
	if WordCount(ref.Title) < minTitleWords {
		return types.StatusSkippedShortTitle, true
	}
	return "", false
}

// Classification is the decision derived from a set of backend results.
type Classification struct {
	Status              types.FinalStatus
	ContributingBackend string
	TimedOutBackends    []string
}

// Classify reduces the results collected for one reference to a final
// status. Precedence: any match wins, then any title-only match, then
// not-found. Result order only matters for picking the contributing
// backend among equals; the status itself is order-independent.
func Classify(results []types.BackendResult) Classification {
	var c Classification
	var titleOnlyBackend string

	for _, r := range results {
		switch r.Kind {
		case types.KindMatch:
			if c.Status != types.StatusVerified {
				c.Status = types.StatusVerified
				c.ContributingBackend = r.Backend
			}
		case types.KindTitleOnly:
			if titleOnlyBackend == "" {
				titleOnlyBackend = r.Backend
			}
		case types.KindTimeout:
			c.TimedOutBackends = append(c.TimedOutBackends, r.Backend)
		}
	}

	if c.Status == types.StatusVerified {
		return c
	}
	if titleOnlyBackend != "" {
		c.Status = types.StatusAuthorMismatch
		c.ContributingBackend = titleOnlyBackend
		return c
	}
	c.Status = types.StatusNotFound
	return c
}

// CompareRecord rates a found record against the cited reference:
// a matching title with author overlap above the threshold is a match,
// a matching title without enough overlap is title-only, anything else is
// no match. References citing no authors verify on title alone.
func CompareRecord(ref types.Reference, foundTitle string, foundAuthors []string, threshold float64) types.ResultKind {
	if !TitlesMatch(ref.Title, foundTitle) {
		return types.KindNoMatch
	}
	if len(ref.Authors) == 0 {
		return types.KindMatch
	}
	if AuthorOverlap(ref.Authors, foundAuthors) > threshold {
		return types.KindMatch
	}
	return types.KindTitleOnly
}
