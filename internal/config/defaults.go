package config

const (
	defaultUploadDir            = "input_data/uploaded"
	defaultProcessingDir        = "input_data/processing"
	defaultOutputDir            = "output_data"
	defaultLogDir               = "logs"
	defaultAPIBind              = "127.0.0.1:7824"
	defaultTranscriberBaseURL   = "https://api.openai.com/v1"
	defaultTranscriberModel     = "gpt-4o-mini-transcribe"
	defaultTranscriberLanguage  = "es"
	defaultTranscriberTimeout   = 300
	defaultAnalysisBaseURL      = "https://api.openai.com/v1"
	defaultAnalysisModel        = "gpt-5"
	defaultAnalysisTimeout      = 120
	defaultMaxConcurrency       = 3
	defaultWorkspaceMaxAgeHours = 24
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:     defaultUploadDir,
			ProcessingDir: defaultProcessingDir,
			OutputDir:     defaultOutputDir,
			LogDir:        defaultLogDir,
			APIBind:       defaultAPIBind,
		},
		Transcriber: Transcriber{
			BaseURL:        defaultTranscriberBaseURL,
			Model:          defaultTranscriberModel,
			Language:       defaultTranscriberLanguage,
			TimeoutSeconds: defaultTranscriberTimeout,
		},
		Analysis: Analysis{
			BaseURL:        defaultAnalysisBaseURL,
			Model:          defaultAnalysisModel,
			TimeoutSeconds: defaultAnalysisTimeout,
		},
		Workflow: Workflow{
			MaxConcurrency:       defaultMaxConcurrency,
			WorkspaceMaxAgeHours: defaultWorkspaceMaxAgeHours,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Batch:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
