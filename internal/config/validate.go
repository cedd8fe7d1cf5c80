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
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateService(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Storage.OutputBucket) == "" {
		return errors.New("storage.output_bucket must be set when storage is enabled")
	}
	if strings.TrimSpace(c.Storage.Endpoint) == "" {
		return errors.New("storage.endpoint must be set when storage is enabled")
	}
	if c.Storage.TimeoutSeconds <= 0 {
		return errors.New("storage.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if strings.TrimSpace(c.Engine.Binary) == "" {
		return errors.New("engine.binary must be set")
	}
	if c.Engine.StageTimeoutSeconds < 0 {
		return errors.New("engine.stage_timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateService() error {
	if strings.TrimSpace(c.Service.Bind) == "" {
		return errors.New("service.bind must be set")
	}
	return nil
}
