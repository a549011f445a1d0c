package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the default per-query timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "refcheck/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// BackendConfig holds credentials, endpoints, and index locations that
// decide which adapters the registry enables.
type BackendConfig struct {
	HTTPConfig `yaml:",inline"`

	// SemanticScholarAPIKey enables authenticated Semantic Scholar access
	// with higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// CrossrefMailto is sent to Crossref for polite-pool access.
	CrossrefMailto string `json:"crossref_mailto,omitempty" yaml:"crossref_mailto,omitempty"`

	// OpenAlexEmail is sent as the mailto parameter to OpenAlex.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// WebSearchURL is the web-search fallback endpoint. Empty disables
	// the web-search adapter entirely.
	WebSearchURL string `json:"web_search_url,omitempty" yaml:"web_search_url,omitempty"`

	// WebSearchAPIKey authenticates against WebSearchURL when required.
	WebSearchAPIKey string `json:"web_search_api_key,omitempty" yaml:"web_search_api_key,omitempty"`

	// DBLPIndexPath, ACLIndexPath, and OpenAlexIndexPath point at locally
	// built offline indexes. When set, the offline adapter replaces the
	// online one for that source.
	DBLPIndexPath     string `json:"dblp_index_path,omitempty" yaml:"dblp_index_path,omitempty"`
	ACLIndexPath      string `json:"acl_index_path,omitempty" yaml:"acl_index_path,omitempty"`
	OpenAlexIndexPath string `json:"openalex_index_path,omitempty" yaml:"openalex_index_path,omitempty"`

	// Disabled lists backend names to leave out of the registry.
	Disabled []string `json:"disabled,omitempty" yaml:"disabled,omitempty"`

	// Timeouts overrides the default timeout per backend name.
	Timeouts map[string]time.Duration `json:"timeouts,omitempty" yaml:"timeouts,omitempty"`

	// AuthorOverlap is the surname-overlap ratio a result must exceed to
	// count as a full match rather than title-only (default 0.5).
	AuthorOverlap float64 `json:"author_overlap,omitempty" yaml:"author_overlap,omitempty"`

	// CacheTTL bounds how long backend answers are reused within a run
	// (default 1h, 0 keeps the default).
	CacheTTL time.Duration `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`
}

// EngineConfig holds orchestrator settings.
type EngineConfig struct {
	// Concurrency bounds how many references are validated at once
	// (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Retry enables the single retry sweep over timed-out backends.
	Retry bool `json:"retry" yaml:"retry"`

	// WebFallback enables the web-search pass for otherwise not-found
	// references.
	WebFallback bool `json:"web_fallback" yaml:"web_fallback"`

	// CheckRetractions enables the best-effort retraction lookup for
	// verified references.
	CheckRetractions bool `json:"check_retractions" yaml:"check_retractions"`
}

// IndexConfig holds offline index build settings.
type IndexConfig struct {
	// BatchSize is the number of records per insert transaction during a
	// build (default 10000).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// StalenessThreshold is the index age beyond which a rebuild warning
	// is emitted (default 30 days).
	StalenessThreshold time.Duration `json:"staleness_threshold" yaml:"staleness_threshold"`
}

// Config groups all component configurations.
type Config struct {
	Backends BackendConfig `json:"backends" yaml:"backends"`
	Engine   EngineConfig  `json:"engine" yaml:"engine"`
	Index    IndexConfig   `json:"index" yaml:"index"`
}

// Default values applied by the components when a field is zero.
const (
	DefaultConcurrency        = 4
	DefaultTimeout            = 10 * time.Second
	DefaultAuthorOverlap      = 0.5
	DefaultBatchSize          = 10000
	DefaultStalenessThreshold = 30 * 24 * time.Hour
	DefaultCacheTTL           = time.Hour
)
