package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// KeySet maps a key id to a PEM-encoded public key as published by the
// platform's OpenID well-known document.
type KeySet map[string]string

// KeySetFetcher loads the platform's published public keys.
type KeySetFetcher interface {
	Fetch(ctx context.Context) (KeySet, error)
}

// HTTPKeySetFetcher fetches the key set over HTTP. The set is fetched fresh
// on every verification; call volume here is low enough that a TTL cache has
// not been worth it yet.
type HTTPKeySetFetcher struct {
	httpClient *http.Client
	url        string
}

var _ KeySetFetcher = (*HTTPKeySetFetcher)(nil)

// NewHTTPKeySetFetcher constructs the default fetcher for the well-known URL.
func NewHTTPKeySetFetcher(client *http.Client, url string) *HTTPKeySetFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPKeySetFetcher{httpClient: client, url: url}
}

// Fetch downloads and decodes the well-known key document.
func (f *HTTPKeySetFetcher) Fetch(ctx context.Context) (KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build key set request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch key set: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read key set: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch key set: status=%d", resp.StatusCode)
	}

	var doc struct {
		Keys map[string]string `json:"keys"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode key set: %w", err)
	}
	return KeySet(doc.Keys), nil
}
