package subtitles

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"reelsync/internal/logging"
	"reelsync/internal/services/ffmpeg"
	"reelsync/internal/services/objectstore"
	"reelsync/internal/services/subsearch"
)

// maxParallelDownloads caps concurrent fallback downloads.
const maxParallelDownloads = 5

// Resolver produces WebVTT captions for a job and stores them remotely.
// Everything here is best effort: a job never fails because captions could
// not be found.
type Resolver struct {
	extractor ffmpeg.Client
	search    subsearch.Client
	store     objectstore.Store
	logger    *slog.Logger
}

// NewResolver wires a resolver. search may be nil when the fallback is
// disabled.
func NewResolver(extractor ffmpeg.Client, search subsearch.Client, store objectstore.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		extractor: extractor,
		search:    search,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "subtitles"),
	}
}

// Resolve extracts English embedded tracks, falling back to the external
// search when none exist. Returns the stored caption filenames; partial
// success is success.
func (r *Resolver) Resolve(ctx context.Context, sourcePath string, tracks []ffmpeg.SubtitleTrack, title string, year int, workDir string, keys objectstore.KeySet) []string {
	names := r.resolveEmbedded(ctx, sourcePath, tracks, workDir, keys)
	if len(names) == 0 {
		names = r.resolveRemote(ctx, title, year, keys)
	}
	sort.Strings(names)
	return names
}

func (r *Resolver) resolveEmbedded(ctx context.Context, sourcePath string, tracks []ffmpeg.SubtitleTrack, workDir string, keys objectstore.KeySet) []string {
	var names []string
	for i, track := range SelectEnglishTracks(tracks) {
		srtPath := filepath.Join(workDir, fmt.Sprintf("track_%d.srt", track.Index))
		if err := r.extractor.ExtractSubtitle(ctx, sourcePath, track.Index, srtPath); err != nil {
			r.logger.Warn("embedded subtitle extraction failed",
				logging.Int("track", track.Index),
				logging.Error(err))
			continue
		}
		data, err := os.ReadFile(srtPath)
		if err != nil {
			r.logger.Warn("extracted subtitle unreadable",
				logging.String("path", srtPath),
				logging.Error(err))
			continue
		}
		name := fmt.Sprintf("english_%02d.vtt", i)
		if r.storeCaption(ctx, keys, name, SRTToWebVTT(string(data))) {
			names = append(names, name)
		}
	}
	return names
}

// resolveRemote runs the search fallback: up to maxParallelDownloads
// candidates fetched concurrently, each succeeding or failing on its own.
func (r *Resolver) resolveRemote(ctx context.Context, title string, year int, keys objectstore.KeySet) []string {
	if r.search == nil || title == "" {
		return nil
	}
	candidates, err := r.search.Search(ctx, title, year)
	if err != nil {
		r.logger.Warn("subtitle search failed",
			logging.String("title", title),
			logging.Error(err))
		return nil
	}
	if len(candidates) > maxParallelDownloads {
		candidates = candidates[:maxParallelDownloads]
	}

	var (
		mu    sync.Mutex
		names []string
	)
	var group errgroup.Group
	for i, candidate := range candidates {
		group.Go(func() error {
			srt, err := r.fetchCandidate(ctx, candidate)
			if err != nil {
				r.logger.Warn("subtitle candidate failed",
					logging.String("release", candidate.Release),
					logging.Error(err))
				return nil
			}
			name := fmt.Sprintf("english_dl_%02d.vtt", i)
			if r.storeCaption(ctx, keys, name, SRTToWebVTT(srt)) {
				mu.Lock()
				names = append(names, name)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	return names
}

func (r *Resolver) fetchCandidate(ctx context.Context, candidate subsearch.Candidate) (string, error) {
	data, err := r.search.Download(ctx, candidate.DownloadURL)
	if err != nil {
		return "", err
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return extractArchivedSubtitle(data)
	}
	return string(data), nil
}

// extractArchivedSubtitle pulls the first .srt entry out of a zip payload.
func extractArchivedSubtitle(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open subtitle archive: %w", err)
	}
	for _, file := range reader.File {
		if !strings.EqualFold(filepath.Ext(file.Name), ".srt") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open archive entry %s: %w", file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read archive entry %s: %w", file.Name, err)
		}
		return string(content), nil
	}
	return "", fmt.Errorf("archive contains no subtitle file")
}

func (r *Resolver) storeCaption(ctx context.Context, keys objectstore.KeySet, name, vtt string) bool {
	key := keys.Subtitle(name)
	err := r.store.Put(ctx, key, strings.NewReader(vtt),
		objectstore.ContentTypeCaption, objectstore.CacheControlRevalidate)
	if err != nil {
		r.logger.Warn("caption upload failed",
			logging.String("key", key),
			logging.Error(err))
		return false
	}
	return true
}
