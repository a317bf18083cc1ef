package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsync/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[object_store]
bucket = "media-bucket"

[media_api]
base_url = "https://api.example.test"

[ingest_queue]
enabled = false
`

func TestLoadMinimalConfigAppliesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := writeConfig(t, minimalConfig)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}

	if cfg.Tenant != "default" {
		t.Fatalf("unexpected tenant: %q", cfg.Tenant)
	}
	wantStaging := filepath.Join(tempHome, ".local", "share", "reelsync", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Transfer.PriorityCount != 5 {
		t.Fatalf("unexpected priority count: %d", cfg.Transfer.PriorityCount)
	}
	if cfg.Transfer.SegmentConcurrency != 3 {
		t.Fatalf("unexpected segment concurrency: %d", cfg.Transfer.SegmentConcurrency)
	}
	if cfg.Transfer.JobConcurrency != 2 {
		t.Fatalf("unexpected job concurrency: %d", cfg.Transfer.JobConcurrency)
	}
	if cfg.Transcoder.Binary != "ffmpeg" {
		t.Fatalf("unexpected transcoder binary: %q", cfg.Transcoder.Binary)
	}
	if cfg.ObjectStore.Region != "us-east-1" {
		t.Fatalf("unexpected region: %q", cfg.ObjectStore.Region)
	}
	if cfg.ObjectStore.MediaPath != "media" {
		t.Fatalf("unexpected media path: %q", cfg.ObjectStore.MediaPath)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestLoadRequiresBucket(t *testing.T) {
	path := writeConfig(t, `
[media_api]
base_url = "https://api.example.test"

[ingest_queue]
enabled = false
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for missing bucket")
	} else if !strings.Contains(err.Error(), "object_store.bucket") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRequiresQueueURLWhenIngestEnabled(t *testing.T) {
	path := writeConfig(t, `
[object_store]
bucket = "media-bucket"

[media_api]
base_url = "https://api.example.test"

[ingest_queue]
enabled = true
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for missing queue url")
	} else if !strings.Contains(err.Error(), "ingest_queue.queue_url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestObjectStoreCredentialsFallBackToEnv(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "env-access")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")

	path := writeConfig(t, minimalConfig)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ObjectStore.AccessKey != "env-access" {
		t.Fatalf("expected access key from env, got %q", cfg.ObjectStore.AccessKey)
	}
	if cfg.ObjectStore.SecretKey != "env-secret" {
		t.Fatalf("expected secret key from env, got %q", cfg.ObjectStore.SecretKey)
	}
}

func TestLoadRejectsBadLogging(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
[logging]
format = "xml"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for bad log format")
	}
}

func TestJobStagingDirIsPerJob(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	a := cfg.JobStagingDir("job-a")
	b := cfg.JobStagingDir("job-b")
	if a == b {
		t.Fatal("expected distinct staging dirs per job")
	}
	if filepath.Dir(a) != cfg.Paths.StagingDir {
		t.Fatalf("staging dir %q not under %q", a, cfg.Paths.StagingDir)
	}
}

func TestCreateSampleWritesEmbeddedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[object_store]") {
		t.Fatal("sample config missing object_store section")
	}
}
