// Package remote fetches the plugin manifest and its listed files over
// HTTP.
//
// The Fetcher wraps a resty client configured with a bounded per-request
// timeout and a small retry limit. Callers treat individual file fetch
// failures as skippable; only a failed manifest fetch aborts a remote
// sync.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Manifest is the remote manifest document: a map of plugin components,
// each listing the relative paths belonging to it.
type Manifest struct {
	Components map[string]Component `json:"components"`
}

// Component is one named group of plugin files.
type Component struct {
	Files []string `json:"files"`
}

// FileCount returns the total number of files across all components.
func (m *Manifest) FileCount() int {
	n := 0
	for _, c := range m.Components {
		n += len(c.Files)
	}
	return n
}

// Fetcher retrieves manifest and file content from the remote source.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a Fetcher for the given base URL with a per-request
// timeout and retry count.
func NewFetcher(baseURL string, timeout time.Duration, retries int) *Fetcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries)
	return &Fetcher{client: client}
}

// FetchManifest downloads and parses the remote manifest document.
func (f *Fetcher) FetchManifest(ctx context.Context) (*Manifest, error) {
	resp, err := f.client.R().SetContext(ctx).Get("manifest.json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch manifest: status %d", resp.StatusCode())
	}

	manifest := &Manifest{}
	if err := json.Unmarshal(resp.Body(), manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Components == nil {
		return nil, fmt.Errorf("failed to parse manifest: missing components map")
	}

	return manifest, nil
}

// FetchFile downloads one manifest-listed file by its relative path.
func (f *Fetcher) FetchFile(ctx context.Context, relPath string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(relPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", relPath, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch %s: status %d", relPath, resp.StatusCode())
	}
	return resp.Body(), nil
}
