// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"callsense/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DocumentsDir = filepath.Join(base, "documents")
	cfg.API.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWeights sets the composite weighting profile on the test config.
func WithWeights(profile string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scoring.Weights = profile
	}
}

// WithYearRange overrides the discovery year range on the test config.
func WithYearRange(start, end int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Source.StartYear = start
		cfg.Source.EndYear = end
	}
}
