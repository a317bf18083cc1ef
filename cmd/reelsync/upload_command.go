package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"reelsync/internal/logging"
	"reelsync/internal/pipeline"
	"reelsync/internal/scheduler"
	"reelsync/internal/services/ffmpeg"
	"reelsync/internal/services/mediaapi"
	"reelsync/internal/services/objectstore"
	"reelsync/internal/services/subsearch"
	"reelsync/internal/sessions"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var (
		jobID string
		kind  string
	)

	cmd := &cobra.Command{
		Use:   "upload <source-file>",
		Short: "Convert and upload one media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			sourcePath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve source path: %w", err)
			}
			if strings.TrimSpace(jobID) == "" {
				jobID = uuid.NewString()
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			store, err := objectstore.NewS3(cfg)
			if err != nil {
				return err
			}
			ledger, err := sessions.Open(cfg)
			if err != nil {
				return err
			}
			defer ledger.Close()

			var search subsearch.Client
			if client := subsearch.NewClient(cfg); client != nil {
				search = client
			}
			transcoder := ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.Transcoder.Binary))
			runner := pipeline.NewRunner(cfg, transcoder, store, mediaapi.NewClient(cfg), search, ledger, logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "uploading %s as job %s\n", sourcePath, jobID)
			job := scheduler.Job{ID: jobID, SourcePath: sourcePath, MediaKind: kind}
			if err := runner.Run(runCtx, job); err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s complete\n", jobID)
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "id", "", "Job id (defaults to a new UUID)")
	cmd.Flags().StringVar(&kind, "kind", "movie", "Declared media kind")
	return cmd
}
