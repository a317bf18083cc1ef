package config

const (
	defaultStagingDir            = "~/.local/share/reelsync/staging"
	defaultLogDir                = "~/.local/share/reelsync/logs"
	defaultLockPath              = "~/.local/share/reelsync/reelsyncd.lock"
	defaultTenant                = "default"
	defaultPriorityCount         = 5
	defaultSegmentConcurrency    = 3
	defaultJobConcurrency        = 2
	defaultStatusIntervalSeconds = 15
	defaultTranscoderBinary      = "ffmpeg"
	defaultSegmentSeconds        = 10
	defaultTranscodeTimeout      = 7200
	defaultObjectStoreRegion     = "us-east-1"
	defaultMediaPath             = "media"
	defaultQueueWaitSeconds      = 20
	defaultMediaAPITimeout       = 30
	defaultSubtitleCandidates    = 5
	defaultSubtitleTimeout       = 60
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Tenant: defaultTenant,
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			LockPath:   defaultLockPath,
		},
		Transfer: Transfer{
			PriorityCount:         defaultPriorityCount,
			SegmentConcurrency:    defaultSegmentConcurrency,
			JobConcurrency:        defaultJobConcurrency,
			StatusIntervalSeconds: defaultStatusIntervalSeconds,
		},
		Transcoder: Transcoder{
			Binary:         defaultTranscoderBinary,
			SegmentSeconds: defaultSegmentSeconds,
			TimeoutSeconds: defaultTranscodeTimeout,
		},
		ObjectStore: ObjectStore{
			Region:    defaultObjectStoreRegion,
			MediaPath: defaultMediaPath,
		},
		IngestQueue: IngestQueue{
			Enabled:     true,
			WaitSeconds: defaultQueueWaitSeconds,
		},
		MediaAPI: MediaAPI{
			TimeoutSeconds: defaultMediaAPITimeout,
		},
		Subtitles: Subtitles{
			Enabled:        true,
			MaxCandidates:  defaultSubtitleCandidates,
			TimeoutSeconds: defaultSubtitleTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
