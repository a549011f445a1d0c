// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pacer enforces a minimum interval between requests to one source, and
// lets 429 backoffs push the next slot into the future so concurrent
// queries against the same source wait too. Each adapter owns its pacer;
// no state is shared across adapters.
type pacer struct {
	lim *rate.Limiter

	mu        sync.Mutex
	notBefore time.Time
}

// newPacer builds a pacer with the given minimum interval between
// requests. A zero interval disables pacing.
func newPacer(interval time.Duration) *pacer {
	p := &pacer{}
	if interval > 0 {
		p.lim = rate.NewLimiter(rate.Every(interval), 1)
	}
	return p
}

// wait blocks until the next request slot is available or the context is
// done.
func (p *pacer) wait(ctx context.Context) error {
	if p.lim != nil {
		if err := p.lim.Wait(ctx); err != nil {
			return err
		}
	}

	p.mu.Lock()
	delay := time.Until(p.notBefore)
	p.mu.Unlock()
	if delay <= 0 {
		return nil
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff pushes the next request slot at least d into the future.
// Called when the source answers 429.
func (p *pacer) backoff(d time.Duration) {
	p.mu.Lock()
	if nb := time.Now().Add(d); nb.After(p.notBefore) {
		p.notBefore = nb
	}
	p.mu.Unlock()
}
