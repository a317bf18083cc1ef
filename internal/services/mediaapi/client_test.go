package mediaapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelsync/internal/config"
	"reelsync/internal/services"
	"reelsync/internal/services/mediaapi"
)

func newTestClient(t *testing.T, handler http.Handler) *mediaapi.HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Tenant = "acme"
	cfg.MediaAPI.BaseURL = server.URL
	cfg.MediaAPI.Token = "secret"
	return mediaapi.NewClient(&cfg)
}

func TestProcessPlaylistPostsToTenantPath(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq mediaapi.FinalizeRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	err := client.ProcessPlaylist(context.Background(), "job-1", mediaapi.FinalizeRequest{
		SegmentCount:  12,
		TotalSegments: 12,
		IsComplete:    true,
	})
	if err != nil {
		t.Fatalf("ProcessPlaylist: %v", err)
	}
	if gotPath != "/acme/media/job-1/playlist/process" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if !gotReq.IsComplete || gotReq.SegmentCount != 12 {
		t.Fatalf("unexpected request %+v", gotReq)
	}
}

func TestPushStatusOmitsEmptyETA(t *testing.T) {
	var raw map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	err := client.PushStatus(context.Background(), "job-1", mediaapi.StatusUpdate{
		Percentage: 41.7,
		StageName:  "uploading",
		Message:    "uploading segments",
	})
	if err != nil {
		t.Fatalf("PushStatus: %v", err)
	}
	if _, present := raw["eta"]; present {
		t.Fatalf("expected eta omitted, got %v", raw)
	}
	if raw["stageName"] != "uploading" {
		t.Fatalf("unexpected payload %v", raw)
	}
}

func TestUnauthorizedClassifiedAsCredentialExpiry(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := client.PushStatus(context.Background(), "job-1", mediaapi.StatusUpdate{})
	if !services.IsCredentialExpiry(err) {
		t.Fatalf("expected credential expiry, got %v", err)
	}
}

func TestServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))

	err := client.ProcessPlaylist(context.Background(), "job-1", mediaapi.FinalizeRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}
