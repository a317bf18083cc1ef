// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"reelsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Tenant = "test-tenant"
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.LockPath = filepath.Join(base, "reelsync.lock")
	cfg.ObjectStore.Bucket = "test-bucket"
	cfg.ObjectStore.Region = "us-east-1"
	cfg.ObjectStore.AccessKey = "test"
	cfg.ObjectStore.SecretKey = "test"
	cfg.MediaAPI.BaseURL = "http://127.0.0.1:0"
	cfg.MediaAPI.Token = "test-token"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithTenant overrides the tenant scope on the test config.
func WithTenant(tenant string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Tenant = tenant
	}
}

// WithIngestQueue enables the inbound queue against the given URL.
func WithIngestQueue(queueURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.IngestQueue.Enabled = true
		cfg.IngestQueue.QueueURL = queueURL
	}
}
