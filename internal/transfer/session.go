// Package transfer drives a job's segment uploads: a concurrent priority
// phase that unblocks playback, then bounded batches for the remainder, with
// playlist checkpoints and throttled status pushes along the way.
package transfer

import (
	"sync"
	"time"
)

// Status names the stages an upload session moves through.
type Status string

const (
	StatusConverting              Status = "converting"
	StatusUsingExistingConversion Status = "using_existing_conversion"
	StatusUploading               Status = "uploading"
	StatusReadyForPlayback        Status = "ready_for_playback"
	StatusCompleted               Status = "completed"
	StatusFailed                  Status = "failed"
)

// Session is the mutable transfer state for one job. The uploaded counter is
// seeded with the resume-set size so completion always reads as the full
// segment count no matter where the run picked up; only fresh transfers move
// it further. Segment workers mutate it concurrently, hence the lock.
type Session struct {
	jobID         string
	totalSegments int
	startTime     time.Time

	mu        sync.Mutex
	uploaded  int
	skipped   int
	totalSize int64
	status    Status
}

// NewSession starts tracking a job with the given segment total and
// resume-set size.
func NewSession(jobID string, totalSegments, resumed int) *Session {
	return &Session{
		jobID:         jobID,
		totalSegments: totalSegments,
		startTime:     time.Now(),
		uploaded:      resumed,
		skipped:       resumed,
		status:        StatusConverting,
	}
}

// JobID returns the owning job's id.
func (s *Session) JobID() string { return s.jobID }

// TotalSegments returns the job's full segment count.
func (s *Session) TotalSegments() int { return s.totalSegments }

// StartTime returns when the session was created.
func (s *Session) StartTime() time.Time { return s.startTime }

// SetStatus records a stage transition. Terminal states stick: once the
// session is completed or failed no further transition is applied.
func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusCompleted || s.status == StatusFailed {
		return
	}
	s.status = status
}

// Status returns the current stage.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// RecordTransfer counts one freshly transferred segment of the given size.
func (s *Session) RecordTransfer(size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded++
	s.totalSize += size
}

// UploadedSegments returns the cumulative count of segments available
// remotely, resume-set members included.
func (s *Session) UploadedSegments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploaded
}

// SkippedSegments returns the resume-set size captured at session start.
func (s *Session) SkippedSegments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// FreshSegments returns how many segments this run actually sent.
func (s *Session) FreshSegments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploaded - s.skipped
}

// TotalSize returns the byte count sent this run.
func (s *Session) TotalSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSize
}

// Percentage returns cumulative completion in [0,100].
func (s *Session) Percentage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totalSegments <= 0 {
		return 0
	}
	return float64(s.uploaded) / float64(s.totalSegments) * 100
}
