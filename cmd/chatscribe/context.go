package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"chatscribe/internal/config"
	"chatscribe/internal/coordinator"
	"chatscribe/internal/enrich"
	"chatscribe/internal/finalizer"
	"chatscribe/internal/ledger"
	"chatscribe/internal/logging"
	"chatscribe/internal/services/analysis"
	"chatscribe/internal/services/whisper"
	"chatscribe/internal/unpacker"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) withLedger(fn func(*ledger.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// acquireLock guards the processing directories against a second concurrent
// invocation. Callers must Unlock the returned lock when done.
func acquireLock(cfg *config.Config) (*flock.Flock, error) {
	lockPath := filepath.Join(cfg.Paths.LogDir, "chatscribe.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another chatscribe instance holds %s; wait for it to finish", lockPath)
	}
	return lock, nil
}

// buildStages wires the pipeline handlers from configuration. The analysis
// stage participates only when enabled and credentialed.
func buildStages(cfg *config.Config, logger *slog.Logger) coordinator.StageSet {
	transcriber := whisper.NewClient(whisper.Config{
		APIKey:         cfg.Transcriber.APIKey,
		BaseURL:        cfg.Transcriber.BaseURL,
		Model:          cfg.Transcriber.Model,
		Language:       cfg.Transcriber.Language,
		TimeoutSeconds: cfg.Transcriber.TimeoutSeconds,
	})

	var analyzer enrich.Analyzer
	if cfg.Analysis.Enabled && strings.TrimSpace(cfg.Analysis.APIKey) != "" {
		analyzer = analysis.NewClient(analysis.Config{
			APIKey:         cfg.Analysis.APIKey,
			BaseURL:        cfg.Analysis.BaseURL,
			Model:          cfg.Analysis.Model,
			TimeoutSeconds: cfg.Analysis.TimeoutSeconds,
		})
	}

	return coordinator.StageSet{
		Unpack:   unpacker.New(logger),
		Enrich:   enrich.New(transcriber, analyzer, logger),
		Finalize: finalizer.New(cfg.Paths.OutputDir, logger),
	}
}

func newLogger(cfg *config.Config, outputPaths ...string) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputPaths,
	})
}

// fileLogger routes log output to the run log so stdout stays free for
// command output.
func fileLogger(cfg *config.Config) (*slog.Logger, error) {
	return newLogger(cfg, filepath.Join(cfg.Paths.LogDir, "chatscribe.log"))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
