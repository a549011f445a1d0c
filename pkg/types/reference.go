// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the refcheck validation
// pipeline: extracted references, per-backend query results, and the final
// per-reference outcome.
package types

import "time"

// Reference is a single citation extracted from a document. It is treated
// as immutable once produced by extraction.
type Reference struct {
	// Title is the cited work's title as extracted.
	Title string `json:"title" yaml:"title"`

	// Authors is the ordered author list as extracted.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// RawText is the full citation string the reference was parsed from.
	RawText string `json:"raw_text,omitempty" yaml:"raw_text,omitempty"`

	// DOI is the citation's DOI when the extractor found one.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Year is the cited publication year, 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`
}

// ResultKind classifies a single backend's answer for one reference.
type ResultKind string

const (
	// KindMatch means title and authors both matched a record.
	KindMatch ResultKind = "match"
	// KindTitleOnly means the title matched but the author overlap fell
	// below the configured threshold.
	KindTitleOnly ResultKind = "title_only"
	// KindNoMatch means the backend answered and found nothing.
	KindNoMatch ResultKind = "no_match"
	// KindTimeout means the backend did not answer within its timeout.
	KindTimeout ResultKind = "timeout"
	// KindError means the backend failed (network error, bad response).
	KindError ResultKind = "error"
)

// BackendResult is one backend's answer for one reference. Immutable once
// received by the orchestrator.
type BackendResult struct {
	Backend string     `json:"backend" yaml:"backend"`
	Kind    ResultKind `json:"kind" yaml:"kind"`

	// MatchedTitle and MatchedAuthors describe the record the backend
	// matched, populated for match and title_only results.
	MatchedTitle   string   `json:"matched_title,omitempty" yaml:"matched_title,omitempty"`
	MatchedAuthors []string `json:"matched_authors,omitempty" yaml:"matched_authors,omitempty"`

	Latency time.Duration `json:"latency" yaml:"latency"`

	// Err carries the failure description for error results.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// FinalStatus is the settled classification of one reference.
type FinalStatus string

const (
	// StatusVerified: at least one backend matched title and authors.
	StatusVerified FinalStatus = "verified"
	// StatusVerifiedWeb: the web-search fallback confirmed the title
	// exists; authors were not verified.
	StatusVerifiedWeb FinalStatus = "verified_web"
	// StatusAuthorMismatch: a title matched but no backend confirmed the
	// cited authors.
	StatusAuthorMismatch FinalStatus = "author_mismatch"
	// StatusNotFound: no backend found the reference.
	StatusNotFound FinalStatus = "not_found"
	// StatusSkippedShortTitle: the normalized title has fewer than five
	// words; too ambiguous to query.
	StatusSkippedShortTitle FinalStatus = "skipped_short_title"
	// StatusSkippedURL: the raw citation is a bare URL, not a publication.
	StatusSkippedURL FinalStatus = "skipped_url"
)

// RetractionInfo describes a retraction notice found for a verified
// reference.
type RetractionInfo struct {
	DOI            string    `json:"doi,omitempty" yaml:"doi,omitempty"`
	Title          string    `json:"title,omitempty" yaml:"title,omitempty"`
	RetractionDate time.Time `json:"retraction_date,omitempty" yaml:"retraction_date,omitempty"`
	Reason         string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	NoticeSource   string    `json:"notice_source,omitempty" yaml:"notice_source,omitempty"`
}

// ValidationOutcome is the settled result for one reference, including the
// full per-backend detail for confidence reporting.
type ValidationOutcome struct {
	Reference Reference   `json:"reference" yaml:"reference"`
	Status    FinalStatus `json:"status" yaml:"status"`

	// ContributingBackend names the backend whose result decided the
	// status, empty for skipped and not-found outcomes.
	ContributingBackend string `json:"contributing_backend,omitempty" yaml:"contributing_backend,omitempty"`

	// Results holds every backend result received for this reference,
	// including those discarded after early exit.
	Results []BackendResult `json:"results,omitempty" yaml:"results,omitempty"`

	// TimedOutBackends lists backends that never answered, after the
	// retry sweep if one ran.
	TimedOutBackends []string `json:"timed_out_backends,omitempty" yaml:"timed_out_backends,omitempty"`

	// RetryUpgraded reports that the retry sweep changed a not-found
	// outcome into a verified one.
	RetryUpgraded bool `json:"retry_upgraded,omitempty" yaml:"retry_upgraded,omitempty"`

	Retraction *RetractionInfo `json:"retraction,omitempty" yaml:"retraction,omitempty"`
}

// Stats aggregates outcome counts for a validation run.
type Stats struct {
	Total             int            `json:"total" yaml:"total"`
	Verified          int            `json:"verified" yaml:"verified"`
	VerifiedWeb       int            `json:"verified_web" yaml:"verified_web"`
	AuthorMismatch    int            `json:"author_mismatch" yaml:"author_mismatch"`
	NotFound          int            `json:"not_found" yaml:"not_found"`
	SkippedShortTitle int            `json:"skipped_short_title" yaml:"skipped_short_title"`
	SkippedURL        int            `json:"skipped_url" yaml:"skipped_url"`
	Retracted         int            `json:"retracted" yaml:"retracted"`
	TimeoutsByBackend map[string]int `json:"timeouts_by_backend,omitempty" yaml:"timeouts_by_backend,omitempty"`
}

// Report is the exportable result of a validation run.
type Report struct {
	RunID     string              `json:"run_id" yaml:"run_id"`
	StartedAt time.Time           `json:"started_at" yaml:"started_at"`
	Stats     Stats               `json:"stats" yaml:"stats"`
	Outcomes  []ValidationOutcome `json:"outcomes" yaml:"outcomes"`
}
