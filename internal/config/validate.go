package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTransfer(); err != nil {
		return err
	}
	if err := c.validateObjectStore(); err != nil {
		return err
	}
	if err := c.validateIngestQueue(); err != nil {
		return err
	}
	if err := c.validateMediaAPI(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTransfer() error {
	if c.Transfer.PriorityCount > 64 {
		return errors.New("transfer.priority_count must be 64 or fewer; the priority batch is uploaded without a concurrency cap")
	}
	if c.Transfer.SegmentConcurrency > 32 {
		return errors.New("transfer.segment_concurrency must be 32 or fewer")
	}
	return nil
}

func (c *Config) validateObjectStore() error {
	if c.ObjectStore.Bucket == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/reelsync/config.toml"
		}
		return fmt.Errorf("object_store.bucket is required. Edit %s (create with 'reelsync config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateIngestQueue() error {
	if !c.IngestQueue.Enabled {
		return nil
	}
	if c.IngestQueue.QueueURL == "" {
		return errors.New("ingest_queue.queue_url must be set when ingest_queue.enabled is true")
	}
	return nil
}

func (c *Config) validateMediaAPI() error {
	if c.MediaAPI.BaseURL == "" {
		return errors.New("media_api.base_url must be set")
	}
	if !strings.HasPrefix(c.MediaAPI.BaseURL, "http://") && !strings.HasPrefix(c.MediaAPI.BaseURL, "https://") {
		return fmt.Errorf("media_api.base_url must be an http(s) URL, got %q", c.MediaAPI.BaseURL)
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if !c.Subtitles.Enabled {
		return nil
	}
	if c.Subtitles.SearchURL != "" && !strings.HasPrefix(c.Subtitles.SearchURL, "http") {
		return fmt.Errorf("subtitles.search_url must be an http(s) URL, got %q", c.Subtitles.SearchURL)
	}
	if c.Subtitles.MaxCandidates > 20 {
		return errors.New("subtitles.max_candidates must be 20 or fewer")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
