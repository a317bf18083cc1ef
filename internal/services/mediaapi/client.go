// Package mediaapi talks to the media platform API: the playlist finalizer
// that turns template manifests into client-servable playlists, and the status
// sink that surfaces upload progress to viewers.
package mediaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsync/internal/config"
	"reelsync/internal/services"
)

const userAgent = "reelsync/0.1"

// StatusUpdate is one progress push to the status sink.
type StatusUpdate struct {
	Percentage float64 `json:"percentage"`
	StageName  string  `json:"stageName"`
	Message    string  `json:"message"`
	// ETA is an absolute timestamp; empty when no rate estimate exists.
	ETA string `json:"eta,omitempty"`
}

// FinalizeRequest asks the platform to process the template playlist.
type FinalizeRequest struct {
	SegmentCount  int  `json:"segmentCount"`
	TotalSegments int  `json:"totalSegments"`
	IsComplete    bool `json:"isComplete"`
}

// Client defines the media API surface the pipeline depends on.
type Client interface {
	ProcessPlaylist(ctx context.Context, jobID string, req FinalizeRequest) error
	PushStatus(ctx context.Context, jobID string, update StatusUpdate) error
}

// HTTPClient implements Client against the platform REST API.
type HTTPClient struct {
	baseURL string
	tenant  string
	token   string
	client  *http.Client
}

// NewClient builds an HTTP media API client from configuration.
func NewClient(cfg *config.Config) *HTTPClient {
	timeout := time.Duration(cfg.MediaAPI.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.MediaAPI.BaseURL, "/"),
		tenant:  cfg.Tenant,
		token:   cfg.MediaAPI.Token,
		client:  &http.Client{Timeout: timeout},
	}
}

// ProcessPlaylist calls POST /{tenant}/media/{jobID}/playlist/process.
func (c *HTTPClient) ProcessPlaylist(ctx context.Context, jobID string, req FinalizeRequest) error {
	url := fmt.Sprintf("%s/%s/media/%s/playlist/process", c.baseURL, c.tenant, jobID)
	return c.post(ctx, url, req, "process playlist")
}

// PushStatus calls POST /{tenant}/media/{jobID}/status.
func (c *HTTPClient) PushStatus(ctx context.Context, jobID string, update StatusUpdate) error {
	url := fmt.Sprintf("%s/%s/media/%s/status", c.baseURL, c.tenant, jobID)
	return c.post(ctx, url, update, "push status")
}

func (c *HTTPClient) post(ctx context.Context, url string, payload any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrValidation, "mediaapi", operation, "encode payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrValidation, "mediaapi", operation, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "mediaapi", operation, "", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrCredentialExpired, "mediaapi", operation, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 300:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrTransient, "mediaapi", operation,
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var _ Client = (*HTTPClient)(nil)
