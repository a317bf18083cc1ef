package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTenant()
	c.normalizeTransfer()
	c.normalizeTranscoder()
	c.normalizeObjectStore()
	c.normalizeIngestQueue()
	c.normalizeMediaAPI()
	c.normalizeSubtitles()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockPath) == "" {
		c.Paths.LockPath = defaultLockPath
	}
	if c.Paths.LockPath, err = expandPath(c.Paths.LockPath); err != nil {
		return fmt.Errorf("paths.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTenant() {
	c.Tenant = strings.Trim(strings.TrimSpace(c.Tenant), "/")
	if c.Tenant == "" {
		c.Tenant = defaultTenant
	}
}

func (c *Config) normalizeTransfer() {
	if c.Transfer.PriorityCount <= 0 {
		c.Transfer.PriorityCount = defaultPriorityCount
	}
	if c.Transfer.SegmentConcurrency <= 0 {
		c.Transfer.SegmentConcurrency = defaultSegmentConcurrency
	}
	if c.Transfer.JobConcurrency <= 0 {
		c.Transfer.JobConcurrency = defaultJobConcurrency
	}
	if c.Transfer.StatusIntervalSeconds <= 0 {
		c.Transfer.StatusIntervalSeconds = defaultStatusIntervalSeconds
	}
}

func (c *Config) normalizeTranscoder() {
	c.Transcoder.Binary = strings.TrimSpace(c.Transcoder.Binary)
	if c.Transcoder.Binary == "" {
		c.Transcoder.Binary = defaultTranscoderBinary
	}
	if c.Transcoder.SegmentSeconds <= 0 {
		c.Transcoder.SegmentSeconds = defaultSegmentSeconds
	}
	if c.Transcoder.TimeoutSeconds <= 0 {
		c.Transcoder.TimeoutSeconds = defaultTranscodeTimeout
	}
}

func (c *Config) normalizeObjectStore() {
	if c.ObjectStore.AccessKey == "" {
		if value, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok {
			c.ObjectStore.AccessKey = strings.TrimSpace(value)
		}
	}
	if c.ObjectStore.SecretKey == "" {
		if value, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok {
			c.ObjectStore.SecretKey = strings.TrimSpace(value)
		}
	}
	c.ObjectStore.Bucket = strings.TrimSpace(c.ObjectStore.Bucket)
	c.ObjectStore.Endpoint = strings.TrimSpace(c.ObjectStore.Endpoint)
	c.ObjectStore.Region = strings.TrimSpace(c.ObjectStore.Region)
	if c.ObjectStore.Region == "" {
		c.ObjectStore.Region = defaultObjectStoreRegion
	}
	c.ObjectStore.MediaPath = strings.Trim(strings.TrimSpace(c.ObjectStore.MediaPath), "/")
	if c.ObjectStore.MediaPath == "" {
		c.ObjectStore.MediaPath = defaultMediaPath
	}
}

func (c *Config) normalizeIngestQueue() {
	c.IngestQueue.QueueURL = strings.TrimSpace(c.IngestQueue.QueueURL)
	if c.IngestQueue.WaitSeconds <= 0 || c.IngestQueue.WaitSeconds > 20 {
		c.IngestQueue.WaitSeconds = defaultQueueWaitSeconds
	}
}

func (c *Config) normalizeMediaAPI() {
	c.MediaAPI.BaseURL = strings.TrimRight(strings.TrimSpace(c.MediaAPI.BaseURL), "/")
	c.MediaAPI.Token = strings.TrimSpace(c.MediaAPI.Token)
	if c.MediaAPI.TimeoutSeconds <= 0 {
		c.MediaAPI.TimeoutSeconds = defaultMediaAPITimeout
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.SearchURL = strings.TrimSpace(c.Subtitles.SearchURL)
	if c.Subtitles.APIKey == "" {
		if value, ok := os.LookupEnv("SUBTITLE_API_KEY"); ok {
			c.Subtitles.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Subtitles.MaxCandidates <= 0 {
		c.Subtitles.MaxCandidates = defaultSubtitleCandidates
	}
	if c.Subtitles.TimeoutSeconds <= 0 {
		c.Subtitles.TimeoutSeconds = defaultSubtitleTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
