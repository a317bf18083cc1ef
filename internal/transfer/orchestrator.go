package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"reelsync/internal/conversion"
	"reelsync/internal/logging"
	"reelsync/internal/manifest"
	"reelsync/internal/resume"
	"reelsync/internal/services"
	"reelsync/internal/services/objectstore"
)

// progressMilestones are completion fractions that force a playlist republish
// even when a batch transferred nothing, so a fully resumed run still
// refreshes the remote playlist periodically.
var progressMilestones = []float64{0.5, 1.0}

// Orchestrator moves one job's segments to remote storage. Segments in the
// resume set are skipped; the first priorityCount segments go up concurrently
// so playback can start, then the remainder goes in batches of batchSize with
// a barrier between batches.
type Orchestrator struct {
	store         objectstore.Store
	builder       *manifest.Builder
	reporter      *Reporter
	keys          objectstore.KeySet
	priorityCount int
	batchSize     int
	logger        *slog.Logger
}

// NewOrchestrator wires an orchestrator for one job.
func NewOrchestrator(store objectstore.Store, builder *manifest.Builder, reporter *Reporter, keys objectstore.KeySet, priorityCount, batchSize int, logger *slog.Logger) *Orchestrator {
	if priorityCount < 1 {
		priorityCount = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &Orchestrator{
		store:         store,
		builder:       builder,
		reporter:      reporter,
		keys:          keys,
		priorityCount: priorityCount,
		batchSize:     batchSize,
		logger:        logging.NewComponentLogger(logger, "transfer"),
	}
}

// Run executes the priority phase, publishes the playback checkpoint, then
// works through the remaining segments batch by batch. The first segment
// failure aborts its batch and fails the job; segments already stored remain
// for the next attempt to resume over.
func (o *Orchestrator) Run(ctx context.Context, record conversion.Record, state resume.State, session *Session) error {
	entries := record.Segments
	total := len(entries)
	if total == 0 {
		return o.fail(ctx, session, services.Wrap(services.ErrValidation, "transfer", "run", "conversion produced no segments", nil))
	}

	session.SetStatus(StatusUploading)
	priority := total
	if o.priorityCount < priority {
		priority = o.priorityCount
	}
	o.logger.Info("transfer starting",
		logging.String(logging.FieldJobID, session.JobID()),
		logging.Int("total_segments", total),
		logging.Int("resumed_segments", session.SkippedSegments()),
		logging.Int("priority_segments", priority))

	fresh, err := o.transferBatch(ctx, record.OutputDir, entries[:priority], state, session)
	if err != nil {
		return o.fail(ctx, session, err)
	}

	completePublished := false
	// A fully resumed priority batch with playlist artifacts already remote
	// needs no republish; anything else does.
	if fresh > 0 || !state.ManifestPublished {
		if err := o.publish(ctx, entries[:covered(priority, total, state)], session); err != nil {
			return o.fail(ctx, session, err)
		}
		completePublished = session.UploadedSegments() >= total
	}
	session.SetStatus(StatusReadyForPlayback)
	o.reporter.Report(ctx, session, "priority segments available for playback")

	nextMilestone := 0
	for start := priority; start < total; start += o.batchSize {
		end := start + o.batchSize
		if end > total {
			end = total
		}
		batchFresh, err := o.transferBatch(ctx, record.OutputDir, entries[start:end], state, session)
		if err != nil {
			return o.fail(ctx, session, err)
		}

		milestone := false
		frac := session.Percentage() / 100
		for nextMilestone < len(progressMilestones) && frac >= progressMilestones[nextMilestone] {
			milestone = true
			nextMilestone++
		}
		if batchFresh > 0 || milestone {
			if err := o.publish(ctx, entries[:covered(end, total, state)], session); err != nil {
				return o.fail(ctx, session, err)
			}
			completePublished = session.UploadedSegments() >= total
		}
		o.reporter.MaybeReport(ctx, session, "uploading segments")
	}

	if !completePublished {
		if err := o.publish(ctx, entries, session); err != nil {
			return o.fail(ctx, session, err)
		}
	}

	session.SetStatus(StatusCompleted)
	o.reporter.Report(ctx, session, "upload complete")
	o.logger.Info("transfer complete",
		logging.String(logging.FieldJobID, session.JobID()),
		logging.Int("fresh_segments", session.FreshSegments()),
		logging.Int("skipped_segments", session.SkippedSegments()),
		logging.Int64("bytes_sent", session.TotalSize()))
	return nil
}

// transferBatch sends every entry concurrently and waits for all of them.
// Batches arrive pre-sized, so no extra limit is applied here. Returns how
// many segments were actually sent rather than skipped.
func (o *Orchestrator) transferBatch(ctx context.Context, outputDir string, batch []conversion.SegmentEntry, state resume.State, session *Session) (int, error) {
	var fresh atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	for _, entry := range batch {
		group.Go(func() error {
			sent, err := o.transferSegment(groupCtx, outputDir, entry, state, session)
			if err != nil {
				return err
			}
			if sent {
				fresh.Add(1)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return int(fresh.Load()), err
	}
	return int(fresh.Load()), nil
}

func (o *Orchestrator) transferSegment(ctx context.Context, outputDir string, entry conversion.SegmentEntry, state resume.State, session *Session) (bool, error) {
	if state.Has(entry.Index) {
		o.logger.Debug("segment already remote, skipping",
			logging.String(logging.FieldJobID, session.JobID()),
			logging.String("segment", entry.Filename))
		return false, nil
	}

	path := filepath.Join(outputDir, entry.Filename)
	file, err := os.Open(path)
	if err != nil {
		return false, services.Wrap(services.ErrNotFound, "transfer", "open segment", entry.Filename, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return false, services.Wrap(services.ErrNotFound, "transfer", "stat segment", entry.Filename, err)
	}

	key := o.keys.Segment(entry.Filename)
	if err := o.store.Put(ctx, key, file, objectstore.ContentTypeSegment, objectstore.CacheControlImmutable); err != nil {
		return false, fmt.Errorf("transfer segment %s: %w", entry.Filename, err)
	}
	session.RecordTransfer(info.Size())
	return true, nil
}

// covered extends the settled prefix over contiguous resume-set members so a
// published playlist also lists segments that were already remote before this
// run reached them. Keeps the playlist gap-free. On a resumed run the
// priority checkpoint can therefore list more than the priority count — a
// published playlist never shrinks below what is already remote.
func covered(settled, total int, state resume.State) int {
	for settled < total && state.Has(settled) {
		settled++
	}
	return settled
}

// publish uploads a template covering the settled prefix of the segment list
// and asks the finalizer to process it with the running counts.
func (o *Orchestrator) publish(ctx context.Context, entries []conversion.SegmentEntry, session *Session) error {
	if err := o.builder.PublishTemplate(ctx, entries); err != nil {
		return err
	}
	return o.builder.NotifyFinalize(ctx, session.UploadedSegments(), session.TotalSegments())
}

func (o *Orchestrator) fail(ctx context.Context, session *Session, err error) error {
	session.SetStatus(StatusFailed)
	o.reporter.Report(ctx, session, "upload failed: "+err.Error())
	o.logger.Error("transfer failed",
		logging.String(logging.FieldJobID, session.JobID()),
		logging.Error(err))
	return err
}
