package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chatscribe/internal/workspace"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAgeHours int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale processing workspaces",
		Long: "Clean removes processing directories older than the configured maximum age.\n" +
			"Workspaces retained after failures accumulate there until reclaimed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			hours := maxAgeHours
			if hours <= 0 {
				hours = cfg.Workflow.WorkspaceMaxAgeHours
			}
			if hours <= 0 {
				return fmt.Errorf("workspace max age must be positive (got %d hours)", hours)
			}

			logger, err := fileLogger(cfg)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}

			result := workspace.CleanStale(cfg.Paths.ProcessingDir, time.Duration(hours)*time.Hour, logger)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d stale workspace(s)\n", len(result.Removed))
			for _, cleanupErr := range result.Errors {
				fmt.Fprintf(out, "Failed to remove %s: %v\n", cleanupErr.Path, cleanupErr.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d workspace(s) could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAgeHours, "max-age-hours", 0, "Override the configured workspace maximum age")
	return cmd
}
