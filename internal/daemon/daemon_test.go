package daemon_test

import (
	"context"
	"testing"

	"reelsync/internal/daemon"
	"reelsync/internal/scheduler"
	"reelsync/internal/testsupport"
)

func TestStartStopReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	sched := scheduler.New(1, func(context.Context, scheduler.Job) error { return nil }, nil)
	d, err := daemon.New(cfg, nil, sched, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	second, err := daemon.New(cfg, nil, scheduler.New(1, func(context.Context, scheduler.Job) error { return nil }, nil), nil, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(ctx); err != nil {
		t.Fatalf("lock must be free after Stop: %v", err)
	}
	if err := second.Stop(); err != nil {
		t.Fatalf("Stop second: %v", err)
	}
}

func TestStartRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	first, err := daemon.New(cfg, nil, scheduler.New(1, func(context.Context, scheduler.Job) error { return nil }, nil), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = first.Stop() }()

	second, err := daemon.New(cfg, nil, scheduler.New(1, func(context.Context, scheduler.Job) error { return nil }, nil), nil, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		_ = second.Stop()
		t.Fatal("second instance must not start while the lock is held")
	}
}
