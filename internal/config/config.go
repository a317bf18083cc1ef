package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	LockPath   string `toml:"lock_path"`
}

// Transfer contains the knobs for the upload pipeline.
type Transfer struct {
	// PriorityCount is the number of leading segments uploaded ahead of the
	// bulk phase so playback can begin early.
	PriorityCount int `toml:"priority_count"`
	// SegmentConcurrency caps concurrent segment uploads within one bulk batch.
	SegmentConcurrency int `toml:"segment_concurrency"`
	// JobConcurrency caps concurrently running upload jobs.
	JobConcurrency int `toml:"job_concurrency"`
	// StatusIntervalSeconds is the minimum interval between throttled status
	// pushes during the bulk phase.
	StatusIntervalSeconds int `toml:"status_interval_seconds"`
}

// Transcoder contains configuration for the external segmenting tool.
type Transcoder struct {
	Binary         string `toml:"binary"`
	SegmentSeconds int    `toml:"segment_seconds"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ObjectStore contains S3-compatible storage configuration.
type ObjectStore struct {
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
	MediaPath    string `toml:"media_path"`
}

// IngestQueue contains configuration for the inbound job queue.
type IngestQueue struct {
	Enabled     bool   `toml:"enabled"`
	QueueURL    string `toml:"queue_url"`
	WaitSeconds int    `toml:"wait_seconds"`
}

// MediaAPI contains configuration for the playlist finalizer and status sink.
type MediaAPI struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Subtitles contains configuration for subtitle resolution.
type Subtitles struct {
	Enabled        bool   `toml:"enabled"`
	SearchURL      string `toml:"search_url"`
	APIKey         string `toml:"api_key"`
	MaxCandidates  int    `toml:"max_candidates"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsync.
//
// Configuration sections by subsystem:
//   - Paths: staging/log directories and the daemon lock file
//   - Tenant: the owner scope prefixed onto every remote key
//   - Transfer: priority count, batch concurrency, job concurrency
//   - Transcoder: external segmenting tool settings
//   - ObjectStore: S3-compatible remote storage
//   - IngestQueue: inbound upload-media command queue
//   - MediaAPI: playlist finalizer and status sink endpoints
//   - Subtitles: external subtitle search fallback
//   - Logging: log format and level
type Config struct {
	Tenant      string      `toml:"tenant"`
	Paths       Paths       `toml:"paths"`
	Transfer    Transfer    `toml:"transfer"`
	Transcoder  Transcoder  `toml:"transcoder"`
	ObjectStore ObjectStore `toml:"object_store"`
	IngestQueue IngestQueue `toml:"ingest_queue"`
	MediaAPI    MediaAPI    `toml:"media_api"`
	Subtitles   Subtitles   `toml:"subtitles"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobStagingDir returns the staging directory exclusively owned by one job.
func (c *Config) JobStagingDir(jobID string) string {
	return filepath.Join(c.Paths.StagingDir, jobID)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
