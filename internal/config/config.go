package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations used by an import run.
type Paths struct {
	PidFile  string `toml:"pid_file"`
	LogDir   string `toml:"log_dir"`
	Database string `toml:"database"`
}

// Import contains settings that shape a single import run.
type Import struct {
	// SingleTransaction wraps all module work of a run in one commit/rollback unit.
	SingleTransaction bool `toml:"single_transaction"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format   string `toml:"format"`
	Level    string `toml:"level"`
	ErrorLog string `toml:"error_log"`
}

// Preflight contains thresholds for environment checks run before an import.
type Preflight struct {
	MinFreeMiB int `toml:"min_free_mib"`
}

// Notifications configures ntfy delivery of run outcomes.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	// RequestTimeout is the ntfy request timeout in seconds.
	RequestTimeout int    `toml:"request_timeout"`
	OnSuccess      bool   `toml:"on_success"`
}

// Config encapsulates all configuration values for the importer.
//
// Configuration sections:
//   - Paths: lock store, log directory and database locations
//   - Import: run-wide switches such as single transaction mode
//   - Modules: the ordered list of processing modules to run
//   - Logging: log format, level and the optional error log
//   - Preflight: environment check thresholds
//   - Notifications: optional ntfy topic for run outcomes
type Config struct {
	Paths         Paths         `toml:"paths"`
	Import        Import        `toml:"import"`
	Modules       []Module      `toml:"modules"`
	Logging       Logging       `toml:"logging"`
	Preflight     Preflight     `toml:"preflight"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path of the per-user configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or searches the default locations
// when path is empty. A missing file yields defaults. The resolved path and
// whether a file was found are returned with the normalized, validated config.
func Load(path string) (*Config, string, bool, error) {
	resolved, found, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if found {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, found, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// locate resolves an explicit path, or picks the first existing file among the
// per-user default and the working directory's project file.
func locate(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	userPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

// EnsureDirectories creates the directories holding the lock store, the logs and the database.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, filepath.Dir(c.Paths.PidFile)}
	if strings.TrimSpace(c.Paths.Database) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.Database))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EnabledModules returns the configured modules that take part in a run, in configured order.
func (c *Config) EnabledModules() []Module {
	out := make([]Module, 0, len(c.Modules))
	for _, m := range c.Modules {
		if m.IsEnabled() {
			out = append(out, m)
		}
	}
	return out
}

func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimLeft(value[1:], `/\`))
	}
	abs, err := filepath.Abs(filepath.Clean(value))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
