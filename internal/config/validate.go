package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var validLogLevels = map[string]struct{}{
	"debug":  {},
	"info":   {},
	"notice": {},
	"warn":   {},
	"error":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateModules(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Preflight.MinFreeMiB < 0 {
		return errors.New("preflight.min_free_mib must be >= 0")
	}
	return c.validateNotifications()
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be >= 0")
	}
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic %q must be an http(s) URL", topic)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.PidFile) == "" {
		return errors.New("paths.pid_file must be set")
	}
	if strings.HasSuffix(c.Paths.PidFile, "/") {
		return fmt.Errorf("paths.pid_file %q must name a file", c.Paths.PidFile)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Import.SingleTransaction && strings.TrimSpace(c.Paths.Database) == "" {
		return errors.New("paths.database must be set when import.single_transaction is true")
	}
	return nil
}

func (c *Config) validateModules() error {
	seen := make(map[string]struct{}, len(c.Modules))
	for i, m := range c.Modules {
		if m.Type == "" {
			return fmt.Errorf("modules[%d]: type must be set", i)
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("modules[%d]: duplicate module name %q", i, m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, ok := validLogLevels[c.Logging.Level]; !ok {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
