// Package scheduler admits transfer jobs into a bounded worker pool, one
// FIFO queue per process, discarding duplicate submissions while a job with
// the same id is queued or running.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reelsync/internal/logging"
)

// Status is the scheduler-visible state of an admitted job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
)

// Job is one submitted unit of work. OnComplete, when set, observes the
// job's outcome after it finishes and before the next queued job is
// admitted; queue consumers use it to acknowledge messages.
type Job struct {
	ID         string
	SourcePath string
	MediaKind  string
	OnComplete func(error)
}

// ActiveUpload is the scheduler's bookkeeping for one admitted job id.
type ActiveUpload struct {
	Status    Status
	QueueTime time.Time
	StartTime time.Time
}

// RunFunc executes one job to completion.
type RunFunc func(ctx context.Context, job Job) error

// SubmitResult says what the scheduler did with a submitted job. Duplicates
// are safe to acknowledge at the source; rejected jobs are not, since the
// scheduler never saw them.
type SubmitResult int

const (
	SubmitAccepted SubmitResult = iota
	SubmitDuplicate
	SubmitRejected
)

// Scheduler is a bounded worker pool with duplicate suppression. Admission
// and retirement share one mutex so capacity can never be oversubscribed when
// several jobs finish back to back.
type Scheduler struct {
	limit  int
	run    RunFunc
	logger *slog.Logger

	mu       sync.Mutex
	active   map[string]*ActiveUpload
	queue    []Job
	inFlight int
	closed   bool
	wg       sync.WaitGroup
}

// New builds a scheduler that runs at most limit jobs concurrently.
func New(limit int, run RunFunc, logger *slog.Logger) *Scheduler {
	if limit < 1 {
		limit = 1
	}
	return &Scheduler{
		limit:  limit,
		run:    run,
		logger: logging.NewComponentLogger(logger, "scheduler"),
		active: make(map[string]*ActiveUpload),
	}
}

// Submit admits a job, starting it immediately when capacity allows and
// queueing it otherwise. A job whose id is already queued or running is
// discarded as a duplicate; a scheduler that has shut down rejects the job
// without recording it.
func (s *Scheduler) Submit(ctx context.Context, job Job) SubmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return SubmitRejected
	}
	if _, exists := s.active[job.ID]; exists {
		s.logger.Info("duplicate job discarded", logging.String(logging.FieldJobID, job.ID))
		return SubmitDuplicate
	}

	record := &ActiveUpload{Status: StatusQueued, QueueTime: time.Now()}
	s.active[job.ID] = record
	if s.inFlight < s.limit {
		s.start(ctx, job, record)
	} else {
		s.queue = append(s.queue, job)
		s.logger.Info("job queued",
			logging.String(logging.FieldJobID, job.ID),
			logging.Int("queue_depth", len(s.queue)))
	}
	return SubmitAccepted
}

// start marks a record uploading and launches its worker. Caller holds the
// lock.
func (s *Scheduler) start(ctx context.Context, job Job, record *ActiveUpload) {
	record.Status = StatusUploading
	record.StartTime = time.Now()
	s.inFlight++
	s.wg.Add(1)
	s.logger.Info("job started",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("in_flight", s.inFlight))
	go func() {
		defer s.wg.Done()
		defer s.retire(ctx, job.ID)
		err := s.run(ctx, job)
		if job.OnComplete != nil {
			job.OnComplete(err)
		}
	}()
}

// retire removes a finished job and admits the next queued one in the same
// critical section.
func (s *Scheduler) retire(ctx context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, jobID)
	s.inFlight--
	s.logger.Info("job retired",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("in_flight", s.inFlight))
	if s.closed {
		return
	}
	for s.inFlight < s.limit && len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		record, ok := s.active[next.ID]
		if !ok {
			continue
		}
		s.start(ctx, next, record)
	}
}

// Records returns a snapshot of every queued or running job.
func (s *Scheduler) Records() map[string]ActiveUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ActiveUpload, len(s.active))
	for id, record := range s.active {
		out[id] = *record
	}
	return out
}

// Shutdown stops admitting work and waits for running jobs to drain or the
// context to expire. Queued jobs that never started are dropped; their queue
// messages redeliver them on the next run.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	dropped := len(s.queue)
	for _, job := range s.queue {
		delete(s.active, job.ID)
	}
	s.queue = nil
	s.mu.Unlock()
	if dropped > 0 {
		s.logger.Info("dropping queued jobs for shutdown", logging.Int("dropped", dropped))
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
