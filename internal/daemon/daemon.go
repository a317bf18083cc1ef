// Package daemon ties the long-running pieces together: single-instance
// locking, the job scheduler, and the queue consumer, with a bounded
// graceful drain on shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelsync/internal/config"
	"reelsync/internal/ingest"
	"reelsync/internal/logging"
	"reelsync/internal/scheduler"
	"reelsync/internal/sessions"
)

// drainTimeout bounds how long shutdown waits for in-flight jobs.
const drainTimeout = 10 * time.Minute

// Daemon owns the worker process lifecycle.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	ledger   *sessions.Store
	sched    *scheduler.Scheduler
	consumer *ingest.Consumer

	lock    *flock.Flock
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a daemon. consumer may be nil when the ingest queue is
// disabled; the daemon then only serves directly submitted jobs.
func New(cfg *config.Config, ledger *sessions.Store, sched *scheduler.Scheduler, consumer *ingest.Consumer, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || sched == nil {
		return nil, errors.New("daemon requires config and scheduler")
	}
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		ledger:   ledger,
		sched:    sched,
		consumer: consumer,
		lock:     flock.New(cfg.Paths.LockPath),
		done:     make(chan struct{}),
	}, nil
}

// Start acquires the instance lock and begins consuming work.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance holds %s", d.cfg.Paths.LockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	go func() {
		defer close(d.done)
		if d.consumer != nil {
			d.consumer.Run(runCtx)
		} else {
			<-runCtx.Done()
		}
	}()

	d.logger.Info("daemon started",
		logging.String("lock_path", d.cfg.Paths.LockPath),
		logging.Bool("queue_enabled", d.consumer != nil))
	return nil
}

// Wait blocks until the consumer loop exits.
func (d *Daemon) Wait() {
	<-d.done
}

// Stop halts intake, drains running jobs, and releases the lock.
func (d *Daemon) Stop() error {
	if !d.running.Load() {
		return nil
	}
	d.running.Store(false)
	if d.cancel != nil {
		d.cancel()
	}
	<-d.done

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := d.sched.Shutdown(drainCtx); err != nil {
		d.logger.Warn("shutdown drain incomplete", logging.Error(err))
	}

	if d.ledger != nil {
		if err := d.ledger.Close(); err != nil {
			d.logger.Warn("session ledger close failed", logging.Error(err))
		}
	}
	if err := d.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	d.logger.Info("daemon stopped")
	return nil
}
