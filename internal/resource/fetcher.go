package resource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Fetcher retrieves publication resources over HTTP.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch retrieves the raw bytes of a resource.
func (f *Fetcher) Fetch(ctx context.Context, resourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch resource: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetch resource %s: status %d: %s", resourceURL, resp.StatusCode, string(respBody))
	}
	return io.ReadAll(resp.Body)
}

// FetchDocument retrieves a resource and loads it with the loader matching
// its URL path extension.
func (f *Fetcher) FetchDocument(ctx context.Context, resourceURL string) (*Document, error) {
	u, err := url.Parse(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	loader, err := ForFile(u.Path)
	if err != nil {
		return nil, err
	}
	data, err := f.Fetch(ctx, resourceURL)
	if err != nil {
		return nil, err
	}
	return loader.Load(bytes.NewReader(data), u.Path)
}
