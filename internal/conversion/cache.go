package conversion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"reelsync/internal/fileutil"
	"reelsync/internal/logging"
)

// RecordFilename is the on-disk name of the persisted conversion description.
const RecordFilename = "conversion.json"

// Cache persists and reloads conversion records per job staging directory.
type Cache struct {
	logger *slog.Logger
}

// NewCache constructs a cache. A nil logger disables logging.
func NewCache(logger *slog.Logger) *Cache {
	return &Cache{logger: logging.NewComponentLogger(logger, "conversion")}
}

// Persist writes the record atomically into its output directory. The
// existence check at reuse time is the real safety net; atomicity only
// guarantees no record ever looks valid while half-written.
func (c *Cache) Persist(record Record) error {
	if record.OutputDir == "" {
		return errors.New("conversion record has no output directory")
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversion record: %w", err)
	}
	path := filepath.Join(record.OutputDir, RecordFilename)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("persist conversion record: %w", err)
	}
	return nil
}

// TryReuse loads a previously persisted record for outputDir. It returns
// (record, true) only when the record parses, lists a non-zero segment count,
// and every listed segment file is still present on disk. Any violation
// discards the record so the caller transcodes from scratch.
func (c *Cache) TryReuse(outputDir string) (Record, bool) {
	path := filepath.Join(outputDir, RecordFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("conversion record unreadable; re-transcoding",
				logging.String("path", path), logging.Error(err))
		}
		return Record{}, false
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		c.logger.Warn("conversion record corrupt; re-transcoding",
			logging.String("path", path), logging.Error(err))
		c.discard(path)
		return Record{}, false
	}

	if record.TotalCount == 0 || len(record.Segments) != record.TotalCount {
		c.logger.Warn("conversion record inconsistent; re-transcoding",
			logging.String("path", path),
			logging.Int("total_count", record.TotalCount),
			logging.Int("segments", len(record.Segments)))
		c.discard(path)
		return Record{}, false
	}

	for _, entry := range record.Segments {
		if !fileutil.FileExists(filepath.Join(outputDir, entry.Filename)) {
			c.logger.Warn("conversion record lists missing segment; re-transcoding",
				logging.String("segment", entry.Filename))
			c.discard(path)
			return Record{}, false
		}
	}

	record.OutputDir = outputDir
	return record, true
}

func (c *Cache) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("discard conversion record", logging.String("path", path), logging.Error(err))
	}
}
