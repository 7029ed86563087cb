package config

const (
	defaultConfigPath  = "~/.config/import-app/config.toml"
	projectConfigName  = "import-app.toml"
	defaultPidFileName = "importer.pid"
	defaultLogDir      = "~/.local/share/import-app/logs"
	defaultDatabase    = "~/.local/share/import-app/import.db"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
	defaultMinFreeMiB  = 16
	defaultNtfyTimeout = 10
)

// Default returns a Config populated with repository defaults. The lock store
// path stays empty and resolves to the system temp directory during
// normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			Database: defaultDatabase,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Preflight: Preflight{
			MinFreeMiB: defaultMinFreeMiB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
	}
}
