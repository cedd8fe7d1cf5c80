// Package testsupport provides helpers shared by the package test suites.
package testsupport

import (
	"path/filepath"
	"testing"

	"animrig/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Remote storage is disabled by default so tests never touch the network.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Storage.Enabled = false
	cfg.Engine.Binary = filepath.Join(base, "bin", "mia-engine")
	cfg.Service.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithStorage enables remote storage against the given endpoint.
func WithStorage(endpoint, bucket string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Storage.Enabled = true
		cfg.Storage.Endpoint = endpoint
		cfg.Storage.OutputBucket = bucket
	}
}

// WithOutputPrefix overrides the published-result key prefix.
func WithOutputPrefix(prefix string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Storage.OutputPrefix = prefix
	}
}
