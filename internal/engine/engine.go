// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine orchestrates a validation run: it fans each reference
// out to every enabled backend, settles a final status per reference,
// and aggregates run statistics.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/refcheck/internal/backend"
	"github.com/pdiddy/refcheck/internal/match"
	"github.com/pdiddy/refcheck/pkg/types"
)

// RetractionChecker looks up retraction notices for verified references.
type RetractionChecker interface {
	Check(ctx context.Context, ref types.Reference) (*types.RetractionInfo, error)
}

// Engine validates batches of references against a set of backends.
type Engine struct {
	// Sources are the backends queried for every reference.
	Sources []backend.Backend

	// Web is the web-search fallback, nil when not configured. It stays
	// out of the main fan-out and only runs for otherwise not-found
	// references.
	Web backend.Backend

	// Timeout maps a backend name to its per-query timeout.
	Timeout func(name string) time.Duration

	// Retractions is consulted for verified references when enabled,
	// nil disables the check.
	Retractions RetractionChecker

	Config types.EngineConfig
}

// New assembles an engine from a backend registry.
func New(reg *backend.Registry, cfg types.EngineConfig, checker RetractionChecker) *Engine {
	return &Engine{
		Sources:     reg.Backends(),
		Web:         reg.WebSearch(),
		Timeout:     reg.Timeout,
		Retractions: checker,
		Config:      cfg,
	}
}

// Validate runs the full pipeline over a batch. Outcomes preserve input
// order; references are processed concurrently up to the configured
// limit.
func (e *Engine) Validate(ctx context.Context, refs []types.Reference) types.Report {
	report := types.Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Outcomes:  make([]types.ValidationOutcome, len(refs)),
	}

	concurrency := e.Config.Concurrency
	if concurrency <= 0 {
		concurrency = types.DefaultConcurrency
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, ref := range refs {
		i, ref := i, ref
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			report.Outcomes[i] = e.validateOne(ctx, ref)
		}()
	}
	wg.Wait()

	report.Stats = tally(report.Outcomes)
	return report
}

// validateOne settles the status of a single reference.
func (e *Engine) validateOne(ctx context.Context, ref types.Reference) types.ValidationOutcome {
	outcome := types.ValidationOutcome{Reference: ref}

	// Skips never touch a backend.
	if status, skip := match.Prefilter(ref); skip {
		outcome.Status = status
		return outcome
	}

	results := e.fanOut(ctx, ref, e.Sources)
	c := match.Classify(results)

	// One retry sweep over backends that never answered, only when the
	// reference would otherwise be lost.
	if e.Config.Retry && c.Status == types.StatusNotFound && len(c.TimedOutBackends) > 0 {
		retried := e.fanOut(ctx, ref, e.pick(c.TimedOutBackends))
		results = append(results, retried...)
		rc := match.Classify(retried)
		switch rc.Status {
		case types.StatusVerified:
			c.Status = rc.Status
			c.ContributingBackend = rc.ContributingBackend
			outcome.RetryUpgraded = true
		case types.StatusAuthorMismatch:
			c.Status = rc.Status
			c.ContributingBackend = rc.ContributingBackend
		}
		// Only backends that failed to answer twice stay listed.
		c.TimedOutBackends = rc.TimedOutBackends
	}

	outcome.Status = c.Status
	outcome.ContributingBackend = c.ContributingBackend
	outcome.Results = results
	outcome.TimedOutBackends = c.TimedOutBackends

	if e.Config.WebFallback && e.Web != nil && outcome.Status == types.StatusNotFound {
		res := e.Web.Query(ctx, ref, e.Timeout(e.Web.Name()))
		outcome.Results = append(outcome.Results, res)
		if res.Kind == types.KindMatch || res.Kind == types.KindTitleOnly {
			outcome.Status = types.StatusVerifiedWeb
			outcome.ContributingBackend = e.Web.Name()
		}
	}

	// Retraction lookup is best-effort and only meaningful for a fully
	// verified reference.
	if e.Config.CheckRetractions && e.Retractions != nil && outcome.Status == types.StatusVerified {
		if info, err := e.Retractions.Check(ctx, ref); err == nil && info != nil {
			outcome.Retraction = info
		}
	}

	return outcome
}

// fanOut queries the given backends concurrently and collects every
// result. The first full match cancels the remaining queries; canceled
// backends report errors, not timeouts, so a genuine timeout observed
// before the match still reaches the stats. Once a match has been
// observed the decision is final and later arrivals are recorded
// without reopening it.
func (e *Engine) fanOut(ctx context.Context, ref types.Reference, sources []backend.Backend) []types.BackendResult {
	if len(sources) == 0 {
		return nil
	}

	qctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan types.BackendResult, len(sources))
	for _, b := range sources {
		b := b
		go func() {
			ch <- b.Query(qctx, ref, e.Timeout(b.Name()))
		}()
	}

	var results []types.BackendResult
	matched := false
	for range sources {
		r := <-ch
		results = append(results, r)
		if r.Kind == types.KindMatch && !matched {
			matched = true
			cancel()
		}
	}
	return results
}

// pick resolves backend names back to sources.
func (e *Engine) pick(names []string) []backend.Backend {
	byName := make(map[string]backend.Backend, len(e.Sources))
	for _, b := range e.Sources {
		byName[b.Name()] = b
	}
	var out []backend.Backend
	for _, n := range names {
		if b, ok := byName[n]; ok {
			out = append(out, b)
		}
	}
	return out
}

// tally aggregates outcome counts for the report.
func tally(outcomes []types.ValidationOutcome) types.Stats {
	stats := types.Stats{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case types.StatusVerified:
			stats.Verified++
		case types.StatusVerifiedWeb:
			stats.VerifiedWeb++
		case types.StatusAuthorMismatch:
			stats.AuthorMismatch++
		case types.StatusNotFound:
			stats.NotFound++
		case types.StatusSkippedShortTitle:
			stats.SkippedShortTitle++
		case types.StatusSkippedURL:
			stats.SkippedURL++
		}
		if o.Retraction != nil {
			stats.Retracted++
		}
		for _, name := range o.TimedOutBackends {
			if stats.TimeoutsByBackend == nil {
				stats.TimeoutsByBackend = make(map[string]int)
			}
			stats.TimeoutsByBackend[name]++
		}
	}
	return stats
}
