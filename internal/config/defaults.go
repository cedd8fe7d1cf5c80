package config

const (
	defaultWorkDir             = "~/.local/share/animrig/work"
	defaultLogDir              = "~/.local/share/animrig/logs"
	defaultOutputBucket        = "mia-results"
	defaultOutputPrefix        = "rigs"
	defaultStorageEndpoint     = "https://storage.googleapis.com"
	defaultStorageTimeout      = 300
	defaultEngineBinary        = "mia-engine"
	defaultStageTimeoutSeconds = 1800
	defaultServiceBind         = "0.0.0.0:8080"
	defaultStaleAfterHours     = 24
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Storage: Storage{
			Enabled:        true,
			OutputBucket:   defaultOutputBucket,
			OutputPrefix:   defaultOutputPrefix,
			Endpoint:       defaultStorageEndpoint,
			TimeoutSeconds: defaultStorageTimeout,
		},
		Engine: Engine{
			Binary:              defaultEngineBinary,
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
		},
		Service: Service{
			Bind: defaultServiceBind,
		},
		Workspaces: Workspaces{
			StaleAfterHours: defaultStaleAfterHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
