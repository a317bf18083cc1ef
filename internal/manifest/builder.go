package manifest

import (
	"bytes"
	"context"
	"log/slog"

	"reelsync/internal/conversion"
	"reelsync/internal/logging"
	"reelsync/internal/services"
	"reelsync/internal/services/mediaapi"
	"reelsync/internal/services/objectstore"
)

// Builder publishes template playlists for one job and notifies the external
// finalizer. The orchestrator sequences calls, so Builder needs no locking.
type Builder struct {
	store  objectstore.Store
	api    mediaapi.Client
	keys   objectstore.KeySet
	jobID  string
	logger *slog.Logger
}

// NewBuilder constructs a Builder scoped to one job.
func NewBuilder(store objectstore.Store, api mediaapi.Client, keys objectstore.KeySet, jobID string, logger *slog.Logger) *Builder {
	return &Builder{
		store:  store,
		api:    api,
		keys:   keys,
		jobID:  jobID,
		logger: logging.NewComponentLogger(logger, "manifest"),
	}
}

// PublishTemplate uploads a template playlist listing exactly the provided
// entries.
func (b *Builder) PublishTemplate(ctx context.Context, entries []conversion.SegmentEntry) error {
	body := RenderTemplate(entries)
	err := b.store.Put(ctx, b.keys.PlaylistTemplate(), bytes.NewReader(body),
		objectstore.ContentTypePlaylist, objectstore.CacheControlRevalidate)
	if err != nil {
		return services.Wrap(nil, "manifest", "publish template", "", err)
	}
	b.logger.Debug("template playlist published",
		logging.String(logging.FieldJobID, b.jobID),
		logging.Int("entries", len(entries)))
	return nil
}

// NotifyFinalize asks the platform to process the current template. The
// isComplete flag is derived from the running transferred count.
func (b *Builder) NotifyFinalize(ctx context.Context, transferred, total int) error {
	req := mediaapi.FinalizeRequest{
		SegmentCount:  transferred,
		TotalSegments: total,
		IsComplete:    transferred >= total,
	}
	if err := b.api.ProcessPlaylist(ctx, b.jobID, req); err != nil {
		return services.Wrap(nil, "manifest", "notify finalize", "", err)
	}
	b.logger.Debug("playlist finalization requested",
		logging.String(logging.FieldJobID, b.jobID),
		logging.Int("segment_count", transferred),
		logging.Int("total_segments", total),
		logging.Bool("is_complete", req.IsComplete))
	return nil
}
