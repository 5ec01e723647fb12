package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	fetchMaxTries = 4

	// maxManifestSize caps the response body (16MB). Flows embed their HTML,
	// so manifests are large but not unbounded.
	maxManifestSize = 16 << 20
)

// Fetcher retrieves a manifest over HTTP with exponential backoff. A 4xx
// stops immediately: the manifest URL or credentials are wrong and retrying
// will not fix them.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher. A nil client uses a default with a 15s
// per-request timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client}
}

// Fetch downloads, parses, and validates the manifest at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Manifest, error) {
	operation := func() (*Manifest, error) {
		return f.fetchOnce(ctx, url)
	}
	m, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(fetchMaxTries),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest from %s: %w", url, err)
	}
	return m, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, backoff.Permanent(fmt.Errorf("manifest endpoint returned %d", resp.StatusCode))
	default:
		return nil, fmt.Errorf("manifest endpoint returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
	if err != nil {
		return nil, err
	}

	m, err := Parse(data)
	if err != nil {
		// Parse and validation failures are not transient.
		return nil, backoff.Permanent(err)
	}
	return m, nil
}
