package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chatscribe/internal/ledger"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage job history",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var batchID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded jobs, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				var records []ledger.Record
				var err error
				if strings.TrimSpace(batchID) != "" {
					records, err = store.ListBatch(cmd.Context(), batchID)
				} else {
					records, err = store.List(cmd.Context(), limit)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No job history")
					return nil
				}

				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Job", "Batch", "Archive", "State", "Progress", "Updated", "Detail"},
					buildJobRecordRows(records, colorize),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to show")
	cmd.Flags().StringVar(&batchID, "batch", "", "Show only jobs for the given batch")
	return cmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded job history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Job history cleared")
				return nil
			})
		},
	}
}

func buildJobRecordRows(records []ledger.Record, colorize bool) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		detail := rec.ResultPath
		if rec.Failure != "" {
			detail = rec.Failure
			if rec.FailedStage != "" {
				detail = fmt.Sprintf("%s: %s", rec.FailedStage, rec.Failure)
			}
		}
		rows = append(rows, []string{
			shortID(rec.ID),
			rec.BatchID,
			rec.ArchiveName,
			stateLabel(rec.State, colorize),
			fmt.Sprintf("%d%%", int(rec.Progress*100)),
			formatTimestamp(rec.UpdatedAt),
			detail,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
