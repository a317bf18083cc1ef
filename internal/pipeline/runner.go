// Package pipeline runs one transfer job end to end: conversion (or reuse of
// a previous conversion), remote state inspection, caption resolution, then
// the segment transfer itself.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"reelsync/internal/config"
	"reelsync/internal/conversion"
	"reelsync/internal/logging"
	"reelsync/internal/manifest"
	"reelsync/internal/medianame"
	"reelsync/internal/resume"
	"reelsync/internal/scheduler"
	"reelsync/internal/services"
	"reelsync/internal/services/ffmpeg"
	"reelsync/internal/services/mediaapi"
	"reelsync/internal/services/objectstore"
	"reelsync/internal/services/subsearch"
	"reelsync/internal/sessions"
	"reelsync/internal/subtitles"
	"reelsync/internal/transfer"
)

// Runner owns every collaborator a job needs. One Runner serves all jobs;
// per-job state lives in the session and the staging directory, which is
// exclusive to the job id.
type Runner struct {
	cfg        *config.Config
	transcoder ffmpeg.Client
	cache      *conversion.Cache
	probe      *resume.Probe
	store      objectstore.Store
	api        mediaapi.Client
	search     subsearch.Client
	resolver   *subtitles.Resolver
	ledger     *sessions.Store
	logger     *slog.Logger
}

// NewRunner wires a runner from explicit collaborators. search and ledger
// may be nil when the subtitle fallback or persistence is disabled.
func NewRunner(cfg *config.Config, transcoder ffmpeg.Client, store objectstore.Store, api mediaapi.Client, search subsearch.Client, ledger *sessions.Store, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		transcoder: transcoder,
		cache:      conversion.NewCache(logger),
		probe:      resume.NewProbe(store, logger),
		store:      store,
		api:        api,
		search:     search,
		resolver:   subtitles.NewResolver(transcoder, search, store, logger),
		ledger:     ledger,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run executes one job to completion. The returned error is terminal for
// this attempt; retry is the queue's concern.
func (r *Runner) Run(ctx context.Context, job scheduler.Job) error {
	keys := objectstore.KeySet{
		MediaPath: r.cfg.ObjectStore.MediaPath,
		Tenant:    r.cfg.Tenant,
		Kind:      job.MediaKind,
		JobID:     job.ID,
	}
	r.recordBegin(ctx, job)

	record, info, reused, err := r.convert(ctx, job)
	if err != nil {
		r.recordFinish(ctx, job.ID, nil, string(transfer.StatusFailed), err.Error())
		return err
	}

	state := r.probe.Inspect(ctx, keys)
	resumed := 0
	for _, entry := range record.Segments {
		if state.Has(entry.Index) {
			resumed++
		}
	}
	session := transfer.NewSession(job.ID, record.TotalCount, resumed)
	if reused {
		session.SetStatus(transfer.StatusUsingExistingConversion)
	}
	r.recordProgress(ctx, job.ID, session)

	if r.cfg.Subtitles.Enabled && !record.HasSubtitles {
		r.resolveSubtitles(ctx, job, &record, info, keys)
	}

	interval := time.Duration(r.cfg.Transfer.StatusIntervalSeconds) * time.Second
	reporter := transfer.NewReporter(r.api, job.ID, interval, r.logger)
	builder := manifest.NewBuilder(r.store, r.api, keys, job.ID, r.logger)
	orchestrator := transfer.NewOrchestrator(r.store, builder, reporter, keys,
		r.cfg.Transfer.PriorityCount, r.cfg.Transfer.SegmentConcurrency, r.logger)

	if err := orchestrator.Run(ctx, record, state, session); err != nil {
		r.recordFinish(ctx, job.ID, session, string(transfer.StatusFailed), err.Error())
		if services.IsCredentialExpiry(err) {
			r.logger.Error("credentials expired; re-authenticate before the next attempt",
				logging.String(logging.FieldJobID, job.ID))
		}
		return err
	}

	r.recordFinish(ctx, job.ID, session, string(transfer.StatusCompleted), "upload complete")
	return nil
}

// convert reuses a prior conversion when its record still matches the disk,
// otherwise probes the source and transcodes it into segments. The probe
// result is returned so later steps can reuse it; it is nil on the reuse
// path.
func (r *Runner) convert(ctx context.Context, job scheduler.Job) (conversion.Record, *ffmpeg.MediaInfo, bool, error) {
	outputDir := r.cfg.JobStagingDir(job.ID)
	if record, ok := r.cache.TryReuse(outputDir); ok {
		r.logger.Info("reusing existing conversion",
			logging.String(logging.FieldJobID, job.ID),
			logging.Int("segments", record.TotalCount))
		return record, nil, true, nil
	}

	if _, err := os.Stat(job.SourcePath); err != nil {
		return conversion.Record{}, nil, false, services.Wrap(services.ErrNotFound, "pipeline", "source check", job.SourcePath, err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return conversion.Record{}, nil, false, fmt.Errorf("create staging dir: %w", err)
	}

	info, err := r.transcoder.Probe(ctx, job.SourcePath)
	if err != nil {
		return conversion.Record{}, nil, false, err
	}

	transcodeCtx := ctx
	if r.cfg.Transcoder.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		transcodeCtx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.Transcoder.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	segments, err := r.transcoder.Transcode(transcodeCtx, ffmpeg.TranscodeRequest{
		SourcePath:     job.SourcePath,
		OutputDir:      outputDir,
		SegmentSeconds: r.cfg.Transcoder.SegmentSeconds,
		Plan:           info.Plan(),
	}, r.conversionProgress(ctx, job.ID, info.DurationSeconds))
	if err != nil {
		if transcodeCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return conversion.Record{}, nil, false, services.Wrap(services.ErrTimeout, "pipeline", "transcode",
				fmt.Sprintf("exceeded %ds cap", r.cfg.Transcoder.TimeoutSeconds), err)
		}
		return conversion.Record{}, nil, false, err
	}

	record := conversion.NewRecord(outputDir, segments, r.cfg.Transcoder.SegmentSeconds, info.DurationSeconds)
	if err := r.cache.Persist(record); err != nil {
		r.logger.Warn("conversion record not persisted, restarts will re-transcode",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
	return record, &info, false, nil
}

// conversionProgress turns transcoder progress lines into throttled status
// pushes for the converting stage.
func (r *Runner) conversionProgress(ctx context.Context, jobID string, durationSeconds float64) func(ffmpeg.ProgressUpdate) {
	var (
		mu       sync.Mutex
		lastPush time.Time
	)
	interval := time.Duration(r.cfg.Transfer.StatusIntervalSeconds) * time.Second
	return func(update ffmpeg.ProgressUpdate) {
		mu.Lock()
		if time.Since(lastPush) < interval {
			mu.Unlock()
			return
		}
		lastPush = time.Now()
		mu.Unlock()

		percentage := 0.0
		if durationSeconds > 0 {
			percentage = update.ElapsedSeconds / durationSeconds * 100
			if percentage > 99 {
				percentage = 99
			}
		}
		err := r.api.PushStatus(ctx, jobID, mediaapi.StatusUpdate{
			Percentage: percentage,
			StageName:  string(transfer.StatusConverting),
			Message:    fmt.Sprintf("converting at %.1fx", update.Speed),
		})
		if err != nil {
			r.logger.Warn("converting status push failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err))
		}
	}
}

// resolveSubtitles attaches captions to the job, best effort. The record is
// re-persisted so a resumed run does not search again.
func (r *Runner) resolveSubtitles(ctx context.Context, job scheduler.Job, record *conversion.Record, info *ffmpeg.MediaInfo, keys objectstore.KeySet) {
	var tracks []ffmpeg.SubtitleTrack
	if info != nil {
		tracks = info.SubtitleTracks
	} else {
		tracks = r.subtitleTracks(ctx, job.SourcePath)
	}
	title, year := medianame.Parse(job.SourcePath)
	names := r.resolver.Resolve(ctx, job.SourcePath, tracks, title, year, record.OutputDir, keys)
	if len(names) == 0 {
		return
	}
	record.Subtitles = names
	record.HasSubtitles = true
	if err := r.cache.Persist(*record); err != nil {
		r.logger.Warn("subtitle list not persisted",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
}

func (r *Runner) subtitleTracks(ctx context.Context, sourcePath string) []ffmpeg.SubtitleTrack {
	if _, err := os.Stat(sourcePath); err != nil {
		return nil
	}
	info, err := r.transcoder.Probe(ctx, sourcePath)
	if err != nil {
		r.logger.Warn("subtitle track probe failed", logging.Error(err))
		return nil
	}
	return info.SubtitleTracks
}

func (r *Runner) recordBegin(ctx context.Context, job scheduler.Job) {
	if r.ledger == nil {
		return
	}
	if _, err := r.ledger.Begin(ctx, job.ID, job.SourcePath, job.MediaKind, string(transfer.StatusConverting)); err != nil {
		r.logger.Warn("session ledger write failed", logging.Error(err))
	}
}

func (r *Runner) recordProgress(ctx context.Context, jobID string, session *transfer.Session) {
	if r.ledger == nil {
		return
	}
	err := r.ledger.UpdateProgress(ctx, jobID, string(session.Status()),
		session.TotalSegments(), session.UploadedSegments(), session.SkippedSegments(),
		session.TotalSize(), "")
	if err != nil {
		r.logger.Warn("session ledger write failed", logging.Error(err))
	}
}

func (r *Runner) recordFinish(ctx context.Context, jobID string, session *transfer.Session, status, message string) {
	if r.ledger == nil {
		return
	}
	if session != nil {
		r.recordProgress(ctx, jobID, session)
	}
	if err := r.ledger.Finish(ctx, jobID, status, message); err != nil {
		r.logger.Warn("session ledger write failed", logging.Error(err))
	}
}
