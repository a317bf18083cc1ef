// Package conversion persists the description of a completed transcode beside
// the segments themselves, so a restarted process can skip re-transcoding when
// the output is still intact on disk.
package conversion

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SegmentEntry describes one produced segment. Entries are immutable once the
// transcode finishes; filename sort order equals ordinal order because the
// index is zero-padded.
type SegmentEntry struct {
	Filename        string  `json:"filename"`
	Index           int     `json:"index"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Record is the persisted conversion output description.
type Record struct {
	Segments        []SegmentEntry `json:"segments"`
	TotalCount      int            `json:"totalCount"`
	OutputDir       string         `json:"outputDir"`
	ConvertedAt     time.Time      `json:"convertedAt"`
	DurationSeconds float64        `json:"durationSeconds"`
	Subtitles       []string       `json:"subtitles,omitempty"`
	HasSubtitles    bool           `json:"hasSubtitles"`
}

// NewRecord builds a Record from ordered segment filenames. Every entry
// carries the fixed nominal segment duration; the playlist finalizer owns
// exact timing.
func NewRecord(outputDir string, segmentFiles []string, segmentSeconds int, durationSeconds float64) Record {
	entries := make([]SegmentEntry, 0, len(segmentFiles))
	for i, name := range segmentFiles {
		entries = append(entries, SegmentEntry{
			Filename:        name,
			Index:           i,
			DurationSeconds: float64(segmentSeconds),
		})
	}
	return Record{
		Segments:        entries,
		TotalCount:      len(entries),
		OutputDir:       outputDir,
		ConvertedAt:     time.Now().UTC(),
		DurationSeconds: durationSeconds,
	}
}

// SegmentFilename returns the zero-padded filename for ordinal index.
func SegmentFilename(index int) string {
	return fmt.Sprintf("segment_%06d.ts", index)
}

// SegmentIndex parses the ordinal index out of a segment filename, returning
// false for names that do not match the naming scheme.
func SegmentIndex(filename string) (int, bool) {
	rest, ok := strings.CutPrefix(filename, "segment_")
	if !ok {
		return 0, false
	}
	digits, ok := strings.CutSuffix(rest, ".ts")
	if !ok || len(digits) != 6 {
		return 0, false
	}
	index, err := strconv.Atoi(digits)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}
