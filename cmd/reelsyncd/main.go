// Command reelsyncd is the worker daemon: it consumes upload commands from
// the ingest queue and runs the convert-and-transfer pipeline for each job.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"reelsync/internal/config"
	"reelsync/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	cfg, resolvedPath, exists, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if !exists {
		fmt.Fprintf(os.Stderr, "no configuration at %s; run `reelsync config init` first\n", resolvedPath)
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "prepare directories: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := buildDaemon(cfg, logger)
	if err != nil {
		logger.Error("daemon init failed", logging.Error(err))
		os.Exit(1)
	}
	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	stop()
	logger.Info("shutdown signal received, draining jobs")
	if err := d.Stop(); err != nil {
		logger.Error("daemon stop failed", logging.Error(err))
		os.Exit(1)
	}
}
