// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/refcheck/pkg/types"
)

func TestPrefilter(t *testing.T) {
	tests := []struct {
		name string
		ref  types.Reference
		want types.FinalStatus
		skip bool
	}{
		{
			name: "short title",
			ref:  types.Reference{Title: "Some Paper"},
			want: types.StatusSkippedShortTitle,
			skip: true,
		},
		{
			name: "three words",
			ref:  types.Reference{Title: "A Short One"},
			want: types.StatusSkippedShortTitle,
			skip: true,
		},
		{
			name: "bare URL",
			ref:  types.Reference{Title: "Attention Is All You Need", RawText: "https://arxiv.org/abs/1706.03762"},
			want: types.StatusSkippedURL,
			skip: true,
		},
		{
			name: "five words dispatches",
			ref:  types.Reference{Title: "Attention Is All You Need"},
			skip: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, skip := Prefilter(tt.ref)
			assert.Equal(t, tt.skip, skip)
			if tt.skip {
				assert.Equal(t, tt.want, status)
			}
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		name        string
		results     []types.BackendResult
		wantStatus  types.FinalStatus
		wantBackend string
		wantTimeout []string
	}{
		{
			name: "match beats everything",
			results: []types.BackendResult{
				{Backend: "crossref", Kind: types.KindNoMatch},
				{Backend: "dblp", Kind: types.KindTitleOnly},
				{Backend: "arxiv", Kind: types.KindMatch},
				{Backend: "pubmed", Kind: types.KindTimeout},
			},
			wantStatus:  types.StatusVerified,
			wantBackend: "arxiv",
			wantTimeout: []string{"pubmed"},
		},
		{
			name: "title only becomes author mismatch",
			results: []types.BackendResult{
				{Backend: "crossref", Kind: types.KindNoMatch},
				{Backend: "dblp", Kind: types.KindTitleOnly},
			},
			wantStatus:  types.StatusAuthorMismatch,
			wantBackend: "dblp",
		},
		{
			name: "all misses and timeouts are not found",
			results: []types.BackendResult{
				{Backend: "crossref", Kind: types.KindNoMatch},
				{Backend: "arxiv", Kind: types.KindTimeout},
				{Backend: "pubmed", Kind: types.KindTimeout},
				{Backend: "openalex", Kind: types.KindError},
			},
			wantStatus:  types.StatusNotFound,
			wantTimeout: []string{"arxiv", "pubmed"},
		},
		{
			name:       "no results at all",
			results:    nil,
			wantStatus: types.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.results)
			assert.Equal(t, tt.wantStatus, c.Status)
			assert.Equal(t, tt.wantBackend, c.ContributingBackend)
			assert.Equal(t, tt.wantTimeout, c.TimedOutBackends)
		})
	}
}

func TestClassifyOrderIndependence(t *testing.T) {
	a := []types.BackendResult{
		{Backend: "arxiv", Kind: types.KindMatch},
		{Backend: "dblp", Kind: types.KindTitleOnly},
	}
	b := []types.BackendResult{
		{Backend: "dblp", Kind: types.KindTitleOnly},
		{Backend: "arxiv", Kind: types.KindMatch},
	}
	assert.Equal(t, Classify(a).Status, Classify(b).Status)
	assert.Equal(t, "arxiv", Classify(a).ContributingBackend)
	assert.Equal(t, "arxiv", Classify(b).ContributingBackend)
}

func TestCompareRecord(t *testing.T) {
	ref := types.Reference{
		Title:   "Attention Is All You Need",
		Authors: []string{"Ashish Vaswani", "Noam Shazeer", "Niki Parmar", "Jakob Uszkoreit"},
	}

	// Exact author set.
	kind := CompareRecord(ref, "Attention is all you need",
		[]string{"A. Vaswani", "N. Shazeer", "N. Parmar", "J. Uszkoreit"}, 0.5)
	assert.Equal(t, types.KindMatch, kind)

	// Partial overlap above threshold.
	kind = CompareRecord(ref, "Attention is all you need",
		[]string{"A. Vaswani", "N. Shazeer", "N. Parmar"}, 0.5)
	assert.Equal(t, types.KindMatch, kind)

	// Overlap at exactly the threshold does not count as a match.
	kind = CompareRecord(ref, "Attention is all you need",
		[]string{"A. Vaswani", "N. Shazeer"}, 0.5)
	assert.Equal(t, types.KindTitleOnly, kind)

	// Disjoint authors.
	kind = CompareRecord(ref, "Attention is all you need",
		[]string{"Jacob Devlin", "Kenton Lee"}, 0.5)
	assert.Equal(t, types.KindTitleOnly, kind)

	// Different title.
	kind = CompareRecord(ref, "Some Other Paper Entirely Here", ref.Authors, 0.5)
	assert.Equal(t, types.KindNoMatch, kind)

	// No cited authors verifies on title alone.
	noAuthors := types.Reference{Title: "Attention Is All You Need"}
	kind = CompareRecord(noAuthors, "Attention is all you need", nil, 0.5)
	assert.Equal(t, types.KindMatch, kind)
}
