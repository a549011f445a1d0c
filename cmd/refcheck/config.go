// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/refcheck/pkg/types"
)

// loadConfig materializes the full configuration from viper, with API
// keys falling back to .secrets/ entries.
func loadConfig() types.Config {
	var cfg types.Config

	cfg.Backends.Timeout = viper.GetDuration("backends.timeout")
	cfg.Backends.UserAgent = viper.GetString("backends.user_agent")
	if cfg.Backends.UserAgent == "" {
		cfg.Backends.UserAgent = "refcheck/" + version
	}

	cfg.Backends.SemanticScholarAPIKey = secretDefault("semantic-scholar-api-key", viper.GetString("backends.semantic_scholar_api_key"))
	cfg.Backends.CrossrefMailto = secretDefault("crossref-mailto", viper.GetString("backends.crossref_mailto"))
	cfg.Backends.OpenAlexEmail = secretDefault("openalex-email", viper.GetString("backends.openalex_email"))
	cfg.Backends.WebSearchAPIKey = secretDefault("web-search-api-key", viper.GetString("backends.web_search_api_key"))
	cfg.Backends.WebSearchURL = viper.GetString("backends.web_search_url")

	cfg.Backends.DBLPIndexPath = viper.GetString("backends.dblp_index_path")
	cfg.Backends.ACLIndexPath = viper.GetString("backends.acl_index_path")
	cfg.Backends.OpenAlexIndexPath = viper.GetString("backends.openalex_index_path")

	cfg.Backends.Disabled = viper.GetStringSlice("backends.disabled")
	cfg.Backends.AuthorOverlap = viper.GetFloat64("backends.author_overlap")
	cfg.Backends.CacheTTL = viper.GetDuration("backends.cache_ttl")

	if raw := viper.GetStringMapString("backends.timeouts"); len(raw) > 0 {
		cfg.Backends.Timeouts = make(map[string]time.Duration, len(raw))
		for name, v := range raw {
			d, err := time.ParseDuration(v)
			if err != nil {
				continue
			}
			cfg.Backends.Timeouts[name] = d
		}
	}

	cfg.Engine.Concurrency = viper.GetInt("engine.concurrency")
	cfg.Engine.Retry = viper.GetBool("engine.retry")
	cfg.Engine.WebFallback = viper.GetBool("engine.web_fallback")
	cfg.Engine.CheckRetractions = viper.GetBool("engine.check_retractions")

	cfg.Index.BatchSize = viper.GetInt("index.batch_size")
	cfg.Index.StalenessThreshold = viper.GetDuration("index.staleness_threshold")
	if cfg.Index.StalenessThreshold <= 0 {
		cfg.Index.StalenessThreshold = types.DefaultStalenessThreshold
	}

	return cfg
}

// indexPaths lists the configured offline indexes with the command that
// rebuilds each one.
func indexPaths(cfg types.Config) []indexEntry {
	return []indexEntry{
		{source: "dblp", path: cfg.Backends.DBLPIndexPath, rebuild: "refcheck update-dblp"},
		{source: "acl", path: cfg.Backends.ACLIndexPath, rebuild: "refcheck update-acl"},
		{source: "openalex", path: cfg.Backends.OpenAlexIndexPath, rebuild: "refcheck update-openalex"},
	}
}

type indexEntry struct {
	source  string
	path    string
	rebuild string
}

func (e indexEntry) String() string {
	return fmt.Sprintf("%s (%s)", e.source, e.path)
}
