package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"chatscribe/internal/config"
	"chatscribe/internal/job"
	"chatscribe/internal/ledger"
	"chatscribe/internal/logging"
	"chatscribe/internal/notifications"
	"chatscribe/internal/services"
	"chatscribe/internal/stage"
	"chatscribe/internal/workspace"
)

// StageSet names the three pipeline handlers a coordinator drives.
type StageSet struct {
	Unpack   stage.Handler
	Enrich   stage.Handler
	Finalize stage.Handler
}

// Coordinator accepts batches of chat export archives and processes each
// archive as an isolated job through the three-stage pipeline, never running
// more than the configured number of jobs at once.
type Coordinator struct {
	cfg        *config.Config
	stages     StageSet
	workspaces *workspace.Manager
	notifier   notifications.Service
	store      *ledger.Store
	logger     *slog.Logger

	mu      sync.Mutex
	batches map[string]*Batch
}

// Option customizes a coordinator.
type Option func(*Coordinator)

// WithNotifier overrides the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(c *Coordinator) {
		if notifier != nil {
			c.notifier = notifier
		}
	}
}

// WithLedger wires a history store. Ledger writes are best effort and never
// fail a job.
func WithLedger(store *ledger.Store) Option {
	return func(c *Coordinator) {
		c.store = store
	}
}

// New constructs a coordinator for the supplied configuration and stages.
func New(cfg *config.Config, stages StageSet, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:        cfg,
		stages:     stages,
		workspaces: workspace.NewManager(cfg.Paths.ProcessingDir, logger),
		notifier:   notifications.NewService(cfg),
		logger:     logging.NewComponentLogger(logger, "coordinator"),
		batches:    make(map[string]*Batch),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitBatch registers one job per archive and starts processing them in the
// background. The returned batch is immediately pollable.
func (c *Coordinator) SubmitBatch(ctx context.Context, archivePaths []string) (*Batch, error) {
	if len(archivePaths) == 0 {
		return nil, services.Wrap(
			services.ErrValidation, "batch", "submit",
			"A batch needs at least one archive", nil)
	}

	jobs := make([]*job.Job, 0, len(archivePaths))
	for _, path := range archivePaths {
		jobs = append(jobs, job.New(path, filepath.Base(path)))
	}

	batchID := "batch-" + uuid.NewString()[:8]
	// The batch outlives the submitting request, so its context derives from
	// the background context rather than ctx. Cancellation travels through the
	// batch's own channel, not the context, so in-flight jobs keep running.
	runCtx := services.WithBatchID(context.Background(), batchID)
	batch := &Batch{
		id:        batchID,
		jobs:      jobs,
		cancelled: make(chan struct{}),
		done:      make(chan struct{}),
		started:   time.Now(),
	}

	c.mu.Lock()
	c.batches[batchID] = batch
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "batch submitted",
		logging.String(logging.FieldBatchID, batchID),
		logging.Int("jobs", len(jobs)),
		logging.Int("max_concurrency", c.cfg.Workflow.MaxConcurrency))

	go c.run(runCtx, batch)
	return batch, nil
}

// Batch returns a previously submitted batch by ID.
func (c *Coordinator) Batch(id string) (*Batch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch, ok := c.batches[id]
	return batch, ok
}

// Batches returns every batch the coordinator has accepted, newest first.
func (c *Coordinator) Batches() []*Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Batch, 0, len(c.batches))
	for _, batch := range c.batches {
		out = append(out, batch)
	}
	sortBatchesByStart(out)
	return out
}

// HealthCheck asks every stage handler whether it is ready to process work.
func (c *Coordinator) HealthCheck(ctx context.Context) []stage.Health {
	return []stage.Health{
		c.stages.Unpack.HealthCheck(ctx),
		c.stages.Enrich.HealthCheck(ctx),
		c.stages.Finalize.HealthCheck(ctx),
	}
}

func (c *Coordinator) run(ctx context.Context, batch *Batch) {
	defer batch.finish()

	if err := c.notifier.NotifyBatchStarted(ctx, len(batch.jobs)); err != nil {
		c.logger.WarnContext(ctx, "batch start notification failed", logging.Error(err))
	}

	group := new(errgroup.Group)
	limit := c.cfg.Workflow.MaxConcurrency
	if limit < 1 {
		limit = 1
	}
	group.SetLimit(limit)

	// Jobs are handed to the group in submission order; SetLimit makes Go
	// block until a slot frees, so dispatch order follows submission order.
	for _, jb := range batch.jobs {
		jb := jb
		group.Go(func() error {
			c.runJob(ctx, batch, jb)
			return nil
		})
	}
	_ = group.Wait()

	snap := batch.Snapshot()
	if err := c.notifier.NotifyBatchCompleted(ctx, snap.Completed, snap.Failed, time.Since(batch.started)); err != nil {
		c.logger.WarnContext(ctx, "batch completion notification failed", logging.Error(err))
	}
	c.logger.InfoContext(ctx, "batch finished",
		logging.String(logging.FieldBatchID, batch.id),
		logging.Int("completed", snap.Completed),
		logging.Int("failed", snap.Failed),
		logging.Duration("elapsed", time.Since(batch.started)))
}

type pipelineStep struct {
	state    job.State
	name     string
	handler  stage.Handler
	progress float64
}

func (c *Coordinator) runJob(ctx context.Context, batch *Batch, jb *job.Job) {
	logger := c.logger.With(
		logging.String(logging.FieldBatchID, batch.id),
		logging.String(logging.FieldJobID, jb.ID()),
		logging.String(logging.FieldArchive, jb.ArchiveName()),
	)

	defer func() {
		if r := recover(); r != nil {
			c.failJob(ctx, batch, jb, "pipeline", fmt.Errorf("panic: %v", r), logger)
		}
	}()

	// Cancelled before a worker slot opened up. Once a job gets this far it
	// runs to its own terminal state regardless of later cancellation.
	if batch.isCancelled() {
		c.failJob(ctx, batch, jb, "pipeline", errors.New("batch cancelled"), logger)
		return
	}

	jobCtx := services.WithJobID(ctx, jb.ID())
	if seconds := c.cfg.Workflow.JobTimeoutSeconds; seconds > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, time.Duration(seconds)*time.Second)
		defer cancel()
	}

	c.recordSnapshot(jobCtx, batch, jb, logger)

	ws, err := c.workspaces.Allocate(jb.ID())
	if err != nil {
		wrapped := services.Wrap(
			services.ErrTransient, "workspace", "allocate",
			"Could not allocate an isolated workspace", err)
		c.failJob(jobCtx, batch, jb, "workspace", wrapped, logger)
		return
	}
	jb.SetWorkspace(ws.Root)

	released := false
	defer func() {
		if released {
			return
		}
		if jb.State() == job.StateFailed && c.cfg.Workflow.RetainWorkspaceOnFailure {
			logger.Info("retaining workspace for inspection", logging.String("workspace", ws.Root))
			return
		}
		c.workspaces.Release(ws)
	}()

	env := &stage.Env{Job: jb, Workspace: ws}
	steps := []pipelineStep{
		{state: job.StateUnpacking, name: "unpack", handler: c.stages.Unpack, progress: 0.05},
		{state: job.StateEnriching, name: "enrich", handler: c.stages.Enrich, progress: 0.3},
		{state: job.StateFinalizing, name: "finalize", handler: c.stages.Finalize, progress: 0.85},
	}

	for _, step := range steps {
		if err := c.runStep(jobCtx, env, step); err != nil {
			c.failJob(jobCtx, batch, jb, step.name, err, logger)
			return
		}
		c.recordSnapshot(jobCtx, batch, jb, logger)
	}

	if err := jb.Complete(env.OutputPath); err != nil {
		c.failJob(jobCtx, batch, jb, "finalize", err, logger)
		return
	}
	// Completed jobs never leave debris behind, regardless of retention.
	c.workspaces.Release(ws)
	released = true

	c.recordSnapshot(jobCtx, batch, jb, logger)
	if err := c.notifier.NotifyJobCompleted(jobCtx, jb.ArchiveName(), env.OutputPath); err != nil {
		logger.WarnContext(jobCtx, "job completion notification failed", logging.Error(err))
	}
	logger.InfoContext(jobCtx, "job completed", logging.String("output", env.OutputPath))
}

func (c *Coordinator) runStep(ctx context.Context, env *stage.Env, step pipelineStep) error {
	if err := ctx.Err(); err != nil {
		return classifyContextErr(err)
	}
	if err := env.Job.Transition(step.state); err != nil {
		return err
	}
	env.Job.SetProgress(step.progress)

	stageCtx := services.WithStage(ctx, step.name)
	if err := step.handler.Prepare(stageCtx, env); err != nil {
		return classifyContextErr(services.ClassifyTimeout(err))
	}
	if err := step.handler.Execute(stageCtx, env); err != nil {
		return classifyContextErr(services.ClassifyTimeout(err))
	}
	return nil
}

func (c *Coordinator) failJob(ctx context.Context, batch *Batch, jb *job.Job, stageName string, cause error, logger *slog.Logger) {
	if err := jb.Fail(stageName, cause); err != nil {
		logger.WarnContext(ctx, "could not mark job failed", logging.Error(err))
		return
	}
	c.recordSnapshot(ctx, batch, jb, logger)
	if err := c.notifier.NotifyJobFailed(ctx, jb.ArchiveName(), stageName, cause); err != nil {
		logger.WarnContext(ctx, "job failure notification failed", logging.Error(err))
	}
	logger.ErrorContext(ctx, "job failed",
		logging.String(logging.FieldStage, stageName),
		logging.Error(cause))
}

func (c *Coordinator) recordSnapshot(ctx context.Context, batch *Batch, jb *job.Job, logger *slog.Logger) {
	if c.store == nil {
		return
	}
	// Use a detached context so ledger writes survive job timeouts.
	if err := c.store.RecordSnapshot(context.WithoutCancel(ctx), batch.id, jb.Snapshot()); err != nil {
		logger.WarnContext(ctx, "history write failed", logging.Error(err))
	}
}

// classifyContextErr turns bare context errors into the structured failures
// the status surface reports.
func classifyContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
		return services.Wrap(
			services.ErrTimeout, "pipeline", "deadline",
			"Job exceeded its processing deadline", err)
	}
	return err
}
