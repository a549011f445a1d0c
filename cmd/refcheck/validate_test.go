// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/refcheck/pkg/types"
)

func TestParseReferencesJSONArray(t *testing.T) {
	data := `[
		{"title": "Attention Is All You Need", "authors": ["Ashish Vaswani"]},
		{"title": "Deep Residual Learning for Image Recognition", "year": 2016}
	]`
	refs, err := parseReferences([]byte(data))
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, []string{"Ashish Vaswani"}, refs[0].Authors)
	assert.Equal(t, 2016, refs[1].Year)
}

func TestParseReferencesJSONL(t *testing.T) {
	data := `{"title": "Attention Is All You Need"}

{"title": "Deep Residual Learning for Image Recognition", "doi": "10.1109/CVPR.2016.90"}`
	refs, err := parseReferences([]byte(data))
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "10.1109/CVPR.2016.90", refs[1].DOI)
}

func TestParseReferencesBadLine(t *testing.T) {
	_, err := parseReferences([]byte("{\"title\": \"ok\"}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseReferencesEmpty(t *testing.T) {
	refs, err := parseReferences([]byte("  \n "))
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestFormatReport(t *testing.T) {
	report := types.Report{
		Stats: types.Stats{Total: 2, Verified: 1, NotFound: 1},
		Outcomes: []types.ValidationOutcome{
			{
				Reference:           types.Reference{Title: "Attention Is All You Need"},
				Status:              types.StatusVerified,
				ContributingBackend: "arxiv",
			},
			{
				Reference:        types.Reference{Title: "A Paper That Was Never Actually Written"},
				Status:           types.StatusNotFound,
				TimedOutBackends: []string{"pubmed"},
			},
		},
	}

	var b strings.Builder
	require.NoError(t, formatReport(&b, report))
	out := b.String()

	assert.Contains(t, out, "Attention Is All You Need")
	assert.Contains(t, out, "verified")
	assert.Contains(t, out, "arxiv")
	assert.Contains(t, out, "timed out: pubmed")
	assert.Contains(t, out, "2 references: 1 verified")
}
