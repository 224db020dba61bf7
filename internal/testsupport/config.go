// Package testsupport provides shared helpers for package tests:
// temp-dir backed configs and fabricated image fixtures.
package testsupport

import (
	"path/filepath"
	"testing"

	"shootsort/internal/config"
)

// ConfigOption mutates a test config before it is validated.
type ConfigOption func(*config.Config)

// NewConfig returns a validated config rooted in t.TempDir. Geocoding is
// disabled so tests never touch the network unless they opt back in with
// their own fake endpoint.
func NewConfig(t *testing.T, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Geocode.Enabled = false
	cfg.Logging.Level = "error"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithGeocode enables geocoding against the given base URL, typically an
// httptest server started by the caller.
func WithGeocode(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Geocode.Enabled = true
		cfg.Geocode.BaseURL = baseURL
		cfg.Geocode.RateLimitMS = 1
	}
}

// WithGrouping overrides the clustering knobs.
func WithGrouping(thresholdSeconds float64, minGroupSize int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Grouping.ThresholdSeconds = thresholdSeconds
		cfg.Grouping.MinGroupSize = minGroupSize
	}
}
