// Package resume inspects remote object-store state so interrupted jobs can
// continue where they stopped instead of re-transferring everything.
package resume

import (
	"context"
	"log/slog"

	"reelsync/internal/conversion"
	"reelsync/internal/logging"
	"reelsync/internal/services/objectstore"
)

// State captures what already exists remotely for one job.
type State struct {
	// ExistingSegments holds the ordinal indices of segments already present
	// remotely with non-zero size.
	ExistingSegments map[int]struct{}
	// ManifestPublished reports whether both playlist artifacts exist.
	ManifestPublished bool
}

// Has reports whether the segment with the given index is already remote.
func (s State) Has(index int) bool {
	_, ok := s.ExistingSegments[index]
	return ok
}

// Probe reads remote state for jobs before transfer starts.
type Probe struct {
	store  objectstore.Store
	logger *slog.Logger
}

// NewProbe returns a probe backed by the given store.
func NewProbe(store objectstore.Store, logger *slog.Logger) *Probe {
	return &Probe{store: store, logger: logging.NewComponentLogger(logger, "resume")}
}

// Inspect lists the job's segment prefix and checks for playlist artifacts.
// Listing failures degrade to an empty resume set rather than failing the
// job: the worst outcome is re-transferring bytes that were already there.
// Zero-size objects are ignored so truncated writes get re-uploaded.
func (p *Probe) Inspect(ctx context.Context, keys objectstore.KeySet) State {
	state := State{ExistingSegments: make(map[int]struct{})}

	objects, err := p.store.List(ctx, keys.SegmentPrefix())
	if err != nil {
		p.logger.Warn("remote segment listing failed, starting from scratch",
			logging.String(logging.FieldJobID, keys.JobID),
			logging.Error(err))
		return state
	}
	for _, obj := range objects {
		if obj.Size <= 0 {
			continue
		}
		name := keys.SegmentName(obj.Key)
		index, ok := conversion.SegmentIndex(name)
		if !ok {
			continue
		}
		state.ExistingSegments[index] = struct{}{}
	}

	templateExists, err := p.store.Head(ctx, keys.PlaylistTemplate())
	if err != nil {
		p.logger.Warn("template playlist check failed",
			logging.String(logging.FieldJobID, keys.JobID),
			logging.Error(err))
	}
	playlistExists := false
	if templateExists {
		playlistExists, err = p.store.Head(ctx, keys.Playlist())
		if err != nil {
			p.logger.Warn("playlist check failed",
				logging.String(logging.FieldJobID, keys.JobID),
				logging.Error(err))
		}
	}
	state.ManifestPublished = templateExists && playlistExists

	p.logger.Info("remote state inspected",
		logging.String(logging.FieldJobID, keys.JobID),
		logging.Int("existing_segments", len(state.ExistingSegments)),
		logging.Bool("manifest_published", state.ManifestPublished))
	return state
}
