package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeModules()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("IMPORT_PID_FILE"); ok && strings.TrimSpace(value) != "" {
		c.Paths.PidFile = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.PidFile) == "" {
		c.Paths.PidFile = filepath.Join(os.TempDir(), defaultPidFileName)
	}
	if c.Paths.PidFile, err = expandPath(strings.TrimSpace(c.Paths.PidFile)); err != nil {
		return fmt.Errorf("paths.pid_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.Database, err = expandPath(strings.TrimSpace(c.Paths.Database)); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	return nil
}

func (c *Config) normalizeModules() {
	for i := range c.Modules {
		m := &c.Modules[i]
		m.Type = strings.ToLower(strings.TrimSpace(m.Type))
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			m.Name = m.Type
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.ErrorLog = strings.TrimSpace(c.Logging.ErrorLog)
	if c.Logging.ErrorLog != "" && !filepath.IsAbs(c.Logging.ErrorLog) && !strings.HasPrefix(c.Logging.ErrorLog, "~") {
		c.Logging.ErrorLog = filepath.Join(c.Paths.LogDir, c.Logging.ErrorLog)
	}
	if expanded, err := expandPath(c.Logging.ErrorLog); err == nil {
		c.Logging.ErrorLog = expanded
	}
}
