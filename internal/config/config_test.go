package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Source.BaseURL != defaultBaseURL {
		t.Fatalf("unexpected base url: %q", cfg.Source.BaseURL)
	}
	if cfg.Workflow.FlushEvery != defaultFlushEvery {
		t.Fatalf("unexpected flush_every: %d", cfg.Workflow.FlushEvery)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/state"
log_dir = "` + dir + `/logs"

[source]
base_url = "https://example.test/"
allowed_hosts = [" BSEindia.com ", ""]

[scoring]
weights = "Balanced"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected file to be found, got exists=%v path=%q", exists, resolved)
	}
	if cfg.Source.BaseURL != "https://example.test" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.Source.BaseURL)
	}
	if len(cfg.Source.AllowedHosts) != 1 || cfg.Source.AllowedHosts[0] != "bseindia.com" {
		t.Fatalf("allowed hosts not normalized: %#v", cfg.Source.AllowedHosts)
	}
	if cfg.Scoring.Weights != "balanced" {
		t.Fatalf("weights not normalized: %q", cfg.Scoring.Weights)
	}
	if cfg.LedgerPath() != filepath.Join(cfg.Paths.DataDir, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad base url", func(c *Config) { c.Source.BaseURL = "not a url" }, "base_url"},
		{"inverted years", func(c *Config) { c.Source.StartYear = 2030 }, "start_year"},
		{"bad weights", func(c *Config) { c.Scoring.Weights = "average" }, "weights"},
		{"bad log format", func(c *Config) { c.Logging.Format = "console" }, "logging.format"},
		{"bad endpoint", func(c *Config) { c.Scoring.Endpoint = "::" }, "endpoint"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[scoring]") {
		t.Fatal("sample config missing scoring section")
	}
}
