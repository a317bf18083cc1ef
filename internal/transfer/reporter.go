package transfer

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"reelsync/internal/logging"
	"reelsync/internal/services/mediaapi"
)

// Reporter pushes session progress to the status sink. Pushes during bulk
// transfer are throttled to a minimum interval; phase boundaries and terminal
// states push unconditionally. A failed push never fails the transfer.
type Reporter struct {
	api      mediaapi.Client
	jobID    string
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastPush time.Time
}

// NewReporter builds a reporter for one job. interval is the minimum gap
// between throttled pushes; zero disables throttling.
func NewReporter(api mediaapi.Client, jobID string, interval time.Duration, logger *slog.Logger) *Reporter {
	return &Reporter{
		api:      api,
		jobID:    jobID,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "progress"),
		now:      time.Now,
	}
}

// MaybeReport pushes a status update unless one was pushed within the
// configured interval.
func (r *Reporter) MaybeReport(ctx context.Context, session *Session, message string) {
	r.mu.Lock()
	if r.interval > 0 && r.now().Sub(r.lastPush) < r.interval {
		r.mu.Unlock()
		return
	}
	r.lastPush = r.now()
	r.mu.Unlock()
	r.push(ctx, session, message)
}

// Report pushes a status update regardless of throttling. Used at phase
// boundaries and terminal transitions.
func (r *Reporter) Report(ctx context.Context, session *Session, message string) {
	r.mu.Lock()
	r.lastPush = r.now()
	r.mu.Unlock()
	r.push(ctx, session, message)
}

func (r *Reporter) push(ctx context.Context, session *Session, message string) {
	update := mediaapi.StatusUpdate{
		Percentage: math.Round(session.Percentage()*10) / 10,
		StageName:  string(session.Status()),
		Message:    message,
	}
	if eta, ok := r.estimateETA(session); ok {
		update.ETA = eta.UTC().Format(time.RFC3339)
	}
	if err := r.api.PushStatus(ctx, r.jobID, update); err != nil {
		r.logger.Warn("status push failed",
			logging.String(logging.FieldJobID, r.jobID),
			logging.String("stage", update.StageName),
			logging.Error(err))
		return
	}
	r.logger.Debug("status pushed",
		logging.String(logging.FieldJobID, r.jobID),
		logging.String("stage", update.StageName),
		logging.Float64("percentage", update.Percentage))
}

// estimateETA projects completion from the fresh-transfer rate observed this
// run. With no fresh transfers yet (or a fully resumed run) there is no rate
// and no ETA.
func (r *Reporter) estimateETA(session *Session) (time.Time, bool) {
	fresh := session.FreshSegments()
	remaining := session.TotalSegments() - session.UploadedSegments()
	if fresh <= 0 || remaining <= 0 {
		return time.Time{}, false
	}
	elapsed := r.now().Sub(session.StartTime()).Seconds()
	if elapsed <= 0 {
		return time.Time{}, false
	}
	rate := float64(fresh) / elapsed
	if rate <= 0 {
		return time.Time{}, false
	}
	wait := time.Duration(float64(remaining) / rate * float64(time.Second))
	return r.now().Add(wait), true
}
