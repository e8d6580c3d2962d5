package testsupport

import (
	"path/filepath"
	"testing"

	"chatscribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Transcriber.APIKey = "test"
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploaded")
	cfgVal.Paths.ProcessingDir = filepath.Join(base, "processing")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithMaxConcurrency overrides the worker pool size on the test config.
func WithMaxConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.MaxConcurrency = n
	}
}

// WithJobTimeout overrides the per-job timeout on the test config.
func WithJobTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.JobTimeoutSeconds = seconds
	}
}

// WithAnalysis enables conversation analysis on the test config.
func WithAnalysis(apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.Enabled = true
		b.cfg.Analysis.APIKey = apiKey
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ProcessingDir)
}
