// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/refcheck/internal/index"
	"github.com/pdiddy/refcheck/pkg/types"
)

// semanticScholarInterval paces the Semantic Scholar API, which throttles
// unauthenticated clients to roughly one request per second.
const semanticScholarInterval = time.Second

// Registry holds the enabled backends for a run plus the web-search
// fallback, which is kept out of the main fan-out.
type Registry struct {
	backends  []Backend
	webSearch Backend
	timeouts  map[string]time.Duration
	defTime   time.Duration

	stores []*index.Store
}

// NewRegistry builds the backend set from configuration. An offline
// index path replaces the online adapter for that source; names listed
// in Disabled are dropped entirely.
func NewRegistry(cfg types.BackendConfig) (*Registry, error) {
	client := &http.Client{Timeout: 0} // per-query contexts carry the deadline

	defTime := cfg.Timeout
	if defTime <= 0 {
		defTime = types.DefaultTimeout
	}

	r := &Registry{
		timeouts: cfg.Timeouts,
		defTime:  defTime,
	}

	disabled := make(map[string]bool, len(cfg.Disabled))
	for _, name := range cfg.Disabled {
		disabled[name] = true
	}

	// add wires a querier with its own pacer and cache. The querier and
	// its adapter share one pacer so 429 backoffs delay the next request.
	add := func(build func(notify func(time.Duration)) querier, interval time.Duration) {
		p := newPacer(interval)
		q := build(p.backoff)
		if disabled[q.Name()] {
			return
		}
		r.backends = append(r.backends, newAdapter(q, p, cfg.AuthorOverlap, cfg.CacheTTL))
	}
	addOffline := func(name, path string) error {
		if disabled[name] {
			return nil
		}
		store, err := index.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s index: %w", name, err)
		}
		r.stores = append(r.stores, store)
		p := newPacer(0)
		r.backends = append(r.backends, newAdapter(&offlineQuerier{name: name, store: store}, p, cfg.AuthorOverlap, cfg.CacheTTL))
		return nil
	}

	add(func(notify func(time.Duration)) querier {
		return &crossrefQuerier{client: client, userAgent: cfg.UserAgent, mailto: cfg.CrossrefMailto, notify: notify}
	}, 0)
	add(func(notify func(time.Duration)) querier {
		return &arxivQuerier{client: client, userAgent: cfg.UserAgent, notify: notify}
	}, 0)
	add(func(notify func(time.Duration)) querier {
		return &semanticScholarQuerier{client: client, userAgent: cfg.UserAgent, apiKey: cfg.SemanticScholarAPIKey, notify: notify}
	}, semanticScholarInterval)
	add(func(notify func(time.Duration)) querier {
		return &europePMCQuerier{client: client, userAgent: cfg.UserAgent, notify: notify}
	}, 0)
	add(func(notify func(time.Duration)) querier {
		return &pubmedQuerier{client: client, userAgent: cfg.UserAgent, notify: notify}
	}, 0)
	add(func(notify func(time.Duration)) querier {
		return &neuripsQuerier{client: client, userAgent: cfg.UserAgent, notify: notify}
	}, 0)

	if cfg.DBLPIndexPath != "" {
		if err := addOffline("dblp", cfg.DBLPIndexPath); err != nil {
			r.Close()
			return nil, err
		}
	} else {
		add(func(notify func(time.Duration)) querier {
			return &dblpQuerier{client: client, userAgent: cfg.UserAgent, notify: notify}
		}, 0)
	}
	if cfg.ACLIndexPath != "" {
		if err := addOffline("acl", cfg.ACLIndexPath); err != nil {
			r.Close()
			return nil, err
		}
	}
	if cfg.OpenAlexIndexPath != "" {
		if err := addOffline("openalex", cfg.OpenAlexIndexPath); err != nil {
			r.Close()
			return nil, err
		}
	} else {
		add(func(notify func(time.Duration)) querier {
			return &openAlexQuerier{client: client, userAgent: cfg.UserAgent, mailto: cfg.OpenAlexEmail, notify: notify}
		}, 0)
	}

	if cfg.WebSearchURL != "" && !disabled["web_search"] {
		p := newPacer(0)
		ws := &webSearcher{client: client, endpoint: cfg.WebSearchURL, apiKey: cfg.WebSearchAPIKey, userAgent: cfg.UserAgent, notify: p.backoff}
		r.webSearch = newAdapter(ws, p, cfg.AuthorOverlap, cfg.CacheTTL)
	}

	return r, nil
}

// Backends returns the enabled backends in registration order.
func (r *Registry) Backends() []Backend { return r.backends }

// WebSearch returns the fallback backend, or nil when not configured.
func (r *Registry) WebSearch() Backend { return r.webSearch }

// Timeout returns the per-query timeout for a backend name.
func (r *Registry) Timeout(name string) time.Duration {
	if d, ok := r.timeouts[name]; ok && d > 0 {
		return d
	}
	return r.defTime
}

// Close releases the reader locks on any open offline indexes.
func (r *Registry) Close() {
	for _, s := range r.stores {
		s.Close()
	}
	r.stores = nil
}
