// Package testsupport provides shared helpers for package tests: temp-dir
// configs, opened stores, and a scriptable fake OCR endpoint.
package testsupport

import (
	"path/filepath"
	"testing"

	"readinghub/internal/config"
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
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.OCR.BaseURL = "http://127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithOCRBaseURL points the config at a test OCR endpoint.
func WithOCRBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.OCR.BaseURL = url
	}
}

// WithAPIToken sets the admin API bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}

// WithMaxConcurrent caps batch fan-out on the test config.
func WithMaxConcurrent(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.OCR.MaxConcurrent = n
	}
}
