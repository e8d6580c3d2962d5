package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chatscribe/internal/config"
	"chatscribe/internal/coordinator"
	"chatscribe/internal/fileutil"
	"chatscribe/internal/job"
	"chatscribe/internal/ledger"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var timeoutSeconds int

	cmd := &cobra.Command{
		Use:   "process [archive...]",
		Short: "Process chat export archives and wait for the batch to finish",
		Long: "Process submits the named archives as one batch and blocks until every job\n" +
			"reaches a terminal state. Without arguments it picks up every .zip file in\n" +
			"the configured upload directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			archives, err := resolveArchives(cfg, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(archives) == 0 {
				fmt.Fprintf(out, "No archives found in %s\n", cfg.Paths.UploadDir)
				return nil
			}

			lock, err := acquireLock(cfg)
			if err != nil {
				return err
			}
			defer lock.Unlock()

			logger, err := fileLogger(cfg)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}

			return ctx.withLedger(func(store *ledger.Store) error {
				coord := coordinator.New(cfg, buildStages(cfg, logger), logger, coordinator.WithLedger(store))

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				batch, err := coord.SubmitBatch(runCtx, archives)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Submitted batch %s with %d archive(s)\n", batch.ID(), len(archives))

				// An interrupt cancels the batch; Wait then returns once the
				// in-flight jobs settle.
				go func() {
					<-runCtx.Done()
					batch.Cancel()
				}()

				waitCtx := context.Background()
				if timeoutSeconds > 0 {
					var cancel context.CancelFunc
					waitCtx, cancel = context.WithTimeout(waitCtx, time.Duration(timeoutSeconds)*time.Second)
					defer cancel()
				}

				snap, waitErr := batch.Wait(waitCtx)
				printBatchSummary(out, snap)
				if waitErr != nil {
					return waitErr
				}
				if snap.Failed > 0 {
					return fmt.Errorf("%d of %d jobs failed", snap.Failed, len(snap.Jobs))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "Overall wait timeout in seconds (0 waits indefinitely)")
	return cmd
}

// resolveArchives turns CLI arguments into archive paths under the upload
// directory. Bare names resolve against the upload directory; paths outside it
// are copied in first so the upload directory stays the intake of record. With
// no arguments the upload directory is scanned for zip files.
func resolveArchives(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		paths := make([]string, 0, len(args))
		for _, arg := range args {
			arg = strings.TrimSpace(arg)
			if arg == "" {
				continue
			}
			path := arg
			if !filepath.IsAbs(path) {
				path = filepath.Join(cfg.Paths.UploadDir, path)
			}
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("archive %q: %w", arg, err)
			}
			if filepath.Dir(path) != filepath.Clean(cfg.Paths.UploadDir) {
				uploaded, err := intakeArchive(cfg.Paths.UploadDir, path)
				if err != nil {
					return nil, err
				}
				path = uploaded
			}
			paths = append(paths, path)
		}
		return paths, nil
	}

	entries, err := os.ReadDir(cfg.Paths.UploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan upload directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".zip") {
			continue
		}
		paths = append(paths, filepath.Join(cfg.Paths.UploadDir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// intakeArchive copies an external archive into the upload directory, picking
// a suffixed name when the base name is already taken.
func intakeArchive(uploadDir, src string) (string, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	target := fileutil.UniquePath(filepath.Join(uploadDir, filepath.Base(src)), nil)
	if err := fileutil.CopyFile(src, target); err != nil {
		return "", fmt.Errorf("copy archive into upload directory: %w", err)
	}
	return target, nil
}

func printBatchSummary(out io.Writer, snap coordinator.Snapshot) {
	colorize := shouldColorize(out)
	rows := buildJobRows(snap.Jobs, colorize)
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Archive", "State", "Progress", "Output"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
	}
	fmt.Fprintf(out, "Batch %s: %d completed, %d failed\n", snap.ID, snap.Completed, snap.Failed)
}

func buildJobRows(jobs []job.Snapshot, colorize bool) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, js := range jobs {
		outcome := js.Result
		if js.State == job.StateFailed {
			outcome = js.Cause
			if js.FailedStage != "" {
				outcome = fmt.Sprintf("%s: %s", js.FailedStage, js.Cause)
			}
		}
		rows = append(rows, []string{
			js.ArchiveName,
			stateLabel(js.State, colorize),
			fmt.Sprintf("%d%%", int(js.Progress*100)),
			outcome,
		})
	}
	return rows
}
