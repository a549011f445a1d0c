// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backend implements the uniform query contract over every
// academic data source, online and offline. Each adapter owns its HTTP
// client, rate limiter, and cache; the orchestrator treats them all
// identically through the Backend interface.
package backend

import (
	"context"
	"errors"
	"net"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pdiddy/refcheck/internal/match"
	"github.com/pdiddy/refcheck/pkg/types"
)

// Backend answers whether a single source knows a reference. The result
// is always well-formed: failures and timeouts come back as result kinds,
// never as errors, so one misbehaving source cannot abort a batch.
type Backend interface {
	Name() string
	Query(ctx context.Context, ref types.Reference, timeout time.Duration) types.BackendResult
}

// maxQueryWords caps how many significant title words go into a search
// query. Long titles add noise past this point.
const maxQueryWords = 6

// record is a candidate publication a querier matched against the cited
// title.
type record struct {
	title   string
	authors []string
}

// querier is the per-source lookup each adapter implements. A nil record
// with a nil error means the source answered and found nothing.
type querier interface {
	Name() string
	lookup(ctx context.Context, ref types.Reference) (*record, error)
}

// adapter wraps a querier with the shared concerns: pacing, caching,
// timeout enforcement, and result classification.
type adapter struct {
	q         querier
	pacer     *pacer
	cache     *gocache.Cache
	threshold float64
}

// newAdapter builds an adapter around a querier and its pacer; threshold
// is the author-overlap ratio a match must exceed.
func newAdapter(q querier, p *pacer, threshold float64, cacheTTL time.Duration) *adapter {
	if threshold <= 0 {
		threshold = types.DefaultAuthorOverlap
	}
	if cacheTTL <= 0 {
		cacheTTL = types.DefaultCacheTTL
	}
	return &adapter{
		q:         q,
		pacer:     p,
		cache:     gocache.New(cacheTTL, 2*cacheTTL),
		threshold: threshold,
	}
}

func (a *adapter) Name() string { return a.q.Name() }

// Query runs one lookup under the adapter's pacing and the given timeout
// and classifies the answer against the cited reference.
func (a *adapter) Query(ctx context.Context, ref types.Reference, timeout time.Duration) types.BackendResult {
	result := types.BackendResult{Backend: a.q.Name()}

	key := match.NormalizeTitle(ref.Title)
	if cached, ok := a.cache.Get(key); ok {
		rec := cached.(*record)
		a.classify(&result, ref, rec)
		return result
	}

	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if err := a.pacer.wait(ctx); err != nil {
		if isTimeout(err) {
			result.Kind = types.KindTimeout
		} else {
			result.Kind = types.KindError
			result.Err = err.Error()
		}
		return result
	}

	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rec, err := a.q.lookup(qctx, ref)
	if err != nil {
		if isTimeout(err) {
			result.Kind = types.KindTimeout
		} else {
			result.Kind = types.KindError
			result.Err = err.Error()
		}
		return result
	}

	// Answers are cached; timeouts and errors are not, so a retry sweep
	// reaches the source again.
	a.cache.Set(key, rec, gocache.DefaultExpiration)
	a.classify(&result, ref, rec)
	return result
}

// classify fills the result kind from a completed lookup.
func (a *adapter) classify(result *types.BackendResult, ref types.Reference, rec *record) {
	if rec == nil {
		result.Kind = types.KindNoMatch
		return
	}
	result.Kind = match.CompareRecord(ref, rec.title, rec.authors, a.threshold)
	if result.Kind == types.KindNoMatch {
		return
	}
	result.MatchedTitle = rec.title
	result.MatchedAuthors = rec.authors
}

// isTimeout reports whether a lookup failure was a deadline rather than a
// hard error. Cooperative cancellation is deliberately not a timeout:
// backends cut off after another source already answered should not show
// up in the timeout stats.
func isTimeout(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
