package main

import (
	"log/slog"

	"reelsync/internal/config"
	"reelsync/internal/daemon"
	"reelsync/internal/ingest"
	"reelsync/internal/pipeline"
	"reelsync/internal/scheduler"
	"reelsync/internal/services/ffmpeg"
	"reelsync/internal/services/mediaapi"
	"reelsync/internal/services/objectstore"
	"reelsync/internal/services/subsearch"
	"reelsync/internal/sessions"
)

// buildDaemon wires the full dependency graph. Every collaborator is
// constructed here and passed down explicitly; nothing reads ambient state.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := objectstore.NewS3(cfg)
	if err != nil {
		return nil, err
	}
	ledger, err := sessions.Open(cfg)
	if err != nil {
		return nil, err
	}

	transcoder := ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.Transcoder.Binary))
	api := mediaapi.NewClient(cfg)
	var search subsearch.Client
	if client := subsearch.NewClient(cfg); client != nil {
		search = client
	}

	runner := pipeline.NewRunner(cfg, transcoder, store, api, search, ledger, logger)
	sched := scheduler.New(cfg.Transfer.JobConcurrency, runner.Run, logger)

	var consumer *ingest.Consumer
	if cfg.IngestQueue.Enabled {
		consumer, err = ingest.New(cfg, sched, logger)
		if err != nil {
			_ = ledger.Close()
			return nil, err
		}
	}

	return daemon.New(cfg, ledger, sched, consumer, logger)
}
