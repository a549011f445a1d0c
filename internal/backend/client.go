// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/refcheck/internal/httputil"
)

// getJSON performs a GET request with 429 backoff and decodes the JSON
// response into v. The notify callback feeds backoff delays into the
// adapter's pacer.
func getJSON(ctx context.Context, client *http.Client, url, userAgent string, headers map[string]string, notify func(time.Duration), v any) error {
	resp, err := doGet(ctx, client, url, userAgent, headers, notify)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// doGet performs a GET request with 429 backoff and verifies the status.
func doGet(ctx context.Context, client *http.Client, url, userAgent string, headers map[string]string, notify func(time.Duration)) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httputil.DoWithRetryNotify(ctx, client, req, 0, notify)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp, nil
}
