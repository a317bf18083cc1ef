// Package subsearch queries the external subtitle search API used when a
// source file carries no usable embedded English track.
package subsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reelsync/internal/config"
	"reelsync/internal/services"
)

const userAgent = "reelsync/0.1"

// maxPayloadBytes bounds a single subtitle download; legitimate subtitle
// archives are well under this.
const maxPayloadBytes = 8 << 20

// Candidate is one search hit, ordered by relevance.
type Candidate struct {
	Release     string `json:"release"`
	DownloadURL string `json:"downloadUrl"`
}

// Client defines the subtitle search surface used by the resolver.
type Client interface {
	Search(ctx context.Context, title string, year int) ([]Candidate, error)
	Download(ctx context.Context, downloadURL string) ([]byte, error)
}

// HTTPClient implements Client against the configured search endpoint.
type HTTPClient struct {
	searchURL string
	apiKey    string
	limit     int
	client    *http.Client
}

// NewClient builds an HTTP search client from configuration. Returns nil when
// no search endpoint is configured; callers treat a nil client as "embedded
// tracks only".
func NewClient(cfg *config.Config) *HTTPClient {
	if strings.TrimSpace(cfg.Subtitles.SearchURL) == "" {
		return nil
	}
	timeout := time.Duration(cfg.Subtitles.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		searchURL: cfg.Subtitles.SearchURL,
		apiKey:    cfg.Subtitles.APIKey,
		limit:     cfg.Subtitles.MaxCandidates,
		client:    &http.Client{Timeout: timeout},
	}
}

// Search returns the top candidates for title/year, best first.
func (c *HTTPClient) Search(ctx context.Context, title string, year int) ([]Candidate, error) {
	endpoint, err := url.Parse(c.searchURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "subsearch", "search", "parse search url", err)
	}
	query := endpoint.Query()
	query.Set("query", title)
	if year > 0 {
		query.Set("year", strconv.Itoa(year))
	}
	query.Set("language", "en")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "subsearch", "search", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "subsearch", "search", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, services.Wrap(services.ErrTransient, "subsearch", "search", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var payload struct {
		Results []Candidate `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "subsearch", "search", "decode response", err)
	}

	results := payload.Results
	if c.limit > 0 && len(results) > c.limit {
		results = results[:c.limit]
	}
	return results, nil
}

// Download fetches one candidate's payload, which may be a bare subtitle file
// or a zip archive.
func (c *HTTPClient) Download(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "subsearch", "download", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "subsearch", "download", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, services.Wrap(services.ErrTransient, "subsearch", "download", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "subsearch", "download", "read payload", err)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "subsearch", "download", "empty payload", nil)
	}
	return data, nil
}

var _ Client = (*HTTPClient)(nil)
