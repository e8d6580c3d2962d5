package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscriber(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ProcessingDir) == "" {
		return errors.New("paths.processing_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.ProcessingDir == c.Paths.OutputDir {
		return errors.New("paths.processing_dir and paths.output_dir must differ")
	}
	return nil
}

func (c *Config) validateTranscriber() error {
	if c.Transcriber.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/chatscribe/config.toml"
		}
		return fmt.Errorf("transcriber.api_key is required. Edit %s (create with 'chatscribe config init')", defaultPath)
	}
	if c.Transcriber.BaseURL == "" {
		return errors.New("transcriber.base_url must be set")
	}
	if c.Transcriber.Model == "" {
		return errors.New("transcriber.model must be set")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if !c.Analysis.Enabled {
		return nil
	}
	if c.Analysis.APIKey == "" {
		return errors.New("analysis.api_key must be set when analysis.enabled is true")
	}
	if c.Analysis.BaseURL == "" {
		return errors.New("analysis.base_url must be set when analysis.enabled is true")
	}
	if c.Analysis.Model == "" {
		return errors.New("analysis.model must be set when analysis.enabled is true")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrency < 1 {
		return errors.New("workflow.max_concurrency must be at least 1")
	}
	if c.Workflow.JobTimeoutSeconds < 0 {
		return errors.New("workflow.job_timeout_seconds must not be negative")
	}
	if c.Workflow.WorkspaceMaxAgeHours < 0 {
		return errors.New("workflow.workspace_max_age_hours must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}
