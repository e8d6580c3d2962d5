// Package finalizer implements the last pipeline stage: publishing the
// enriched transcript into the shared output directory.
package finalizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"chatscribe/internal/fileutil"
	"chatscribe/internal/logging"
	"chatscribe/internal/services"
	"chatscribe/internal/stage"
)

const stageName = "finalize"

// Finalizer copies job results out of the workspace. A single Finalizer is
// shared by every job in a batch so concurrent jobs with the same archive name
// never publish to the same path.
type Finalizer struct {
	outputDir string
	logger    *slog.Logger

	mu      sync.Mutex
	claimed map[string]struct{}
}

// New constructs the finalize stage handler.
func New(outputDir string, logger *slog.Logger) *Finalizer {
	return &Finalizer{
		outputDir: outputDir,
		logger:    logging.NewComponentLogger(logger, "finalizer"),
		claimed:   make(map[string]struct{}),
	}
}

// Prepare ensures the output directory exists.
func (f *Finalizer) Prepare(ctx context.Context, env *stage.Env) error {
	if err := os.MkdirAll(f.outputDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrTransient, stageName, "prepare output",
			"Output directory could not be created", err)
	}
	return nil
}

// Execute publishes the transcript (and analysis, when present) under a
// deterministic name derived from the archive, suffixing on collision.
func (f *Finalizer) Execute(ctx context.Context, env *stage.Env) error {
	src, err := stage.RequireTranscript(env)
	if err != nil {
		return err
	}
	stem := strings.TrimSuffix(env.Job.ArchiveName(), filepath.Ext(env.Job.ArchiveName()))

	target := f.claim(filepath.Join(f.outputDir, stem+".txt"))
	defer f.release(target)
	if err := fileutil.CopyFileVerified(src, target); err != nil {
		return services.Wrap(
			services.ErrTransient, stageName, "publish transcript",
			fmt.Sprintf("Could not publish transcript for %s", env.Job.ArchiveName()), err)
	}
	env.OutputPath = target

	if env.AnalysisPath != "" {
		analysisTarget := f.claim(filepath.Join(f.outputDir, stem+"_analysis.txt"))
		defer f.release(analysisTarget)
		// The analysis only exists inside the workspace, which is torn down
		// right after this stage; moving it avoids a second copy on disk.
		if err := fileutil.MoveFile(env.AnalysisPath, analysisTarget); err != nil {
			return services.Wrap(
				services.ErrTransient, stageName, "publish analysis",
				fmt.Sprintf("Could not publish analysis for %s", env.Job.ArchiveName()), err)
		}
	}

	f.logger.InfoContext(ctx, "result published",
		logging.String(logging.FieldJobID, env.Job.ID()),
		logging.String(logging.FieldArchive, env.Job.ArchiveName()),
		logging.String("output", target))
	return nil
}

// HealthCheck reports whether the output directory is usable.
func (f *Finalizer) HealthCheck(ctx context.Context) stage.Health {
	if err := os.MkdirAll(f.outputDir, 0o755); err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	return stage.Healthy(stageName)
}

// claim reserves a free output path so concurrent jobs publishing the same
// archive name each get a distinct suffix before any file hits the disk.
func (f *Finalizer) claim(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := fileutil.UniquePath(path, f.claimed)
	f.claimed[unique] = struct{}{}
	return unique
}

func (f *Finalizer) release(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, path)
}
