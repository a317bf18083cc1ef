package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelsync/internal/sessions"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent and running transfer jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ledger, err := sessions.Open(cfg)
			if err != nil {
				return err
			}
			defer ledger.Close()

			records, err := ledger.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no transfer jobs recorded")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					record.JobID,
					record.Status,
					progressCell(record),
					sizeCell(record.BytesSent),
					record.UpdatedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"JOB", "STATUS", "SEGMENTS", "SENT", "UPDATED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")
	return cmd
}

func progressCell(record sessions.Record) string {
	if record.TotalSegments == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", record.UploadedSegments, record.TotalSegments)
}

func sizeCell(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
