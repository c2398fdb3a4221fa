package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"readinghub/internal/config"
)

func TestDefaultsAreValidOnceOCRConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.OCR.BaseURL = "http://127.0.0.1:9999"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.OCR.BatchSize != 10 {
		t.Fatalf("expected default batch size 10, got %d", cfg.OCR.BatchSize)
	}
	if cfg.OCR.MaxConcurrent != 4 {
		t.Fatalf("expected default max concurrent 4, got %d", cfg.OCR.MaxConcurrent)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
api_token = "  secret  "

[ocr]
base_url = "http://ocr.example.test/"
batch_size = 25

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %s (exists), got %s exists=%v", path, resolved, exists)
	}
	if cfg.OCR.BaseURL != "http://ocr.example.test" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.OCR.BaseURL)
	}
	if cfg.OCR.BatchSize != 25 {
		t.Fatalf("expected batch size 25, got %d", cfg.OCR.BatchSize)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("expected trimmed api token, got %q", cfg.Paths.APIToken)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercased logging settings, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
	if !strings.HasSuffix(cfg.DatabasePath(), "readinghub.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestLoadRejectsMissingOCRBaseURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for missing ocr.base_url")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}
