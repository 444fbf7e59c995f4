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

// Paths contains directory configuration for local state and documents.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	DocumentsDir string `toml:"documents_dir"`
	CatalogCSV   string `toml:"catalog_csv"`
}

// Source contains configuration for transcript discovery and fetching.
type Source struct {
	BaseURL           string   `toml:"base_url"`
	UserAgent         string   `toml:"user_agent"`
	IndexTimeout      int      `toml:"index_timeout"`
	FetchTimeout      int      `toml:"fetch_timeout"`
	StartYear         int      `toml:"start_year"`
	EndYear           int      `toml:"end_year"`
	MaxLinks          int      `toml:"max_links"`
	MinWords          int      `toml:"min_words"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	AllowedHosts      []string `toml:"allowed_hosts"`
}

// Scoring contains configuration for the sentiment model and composite blend.
type Scoring struct {
	Endpoint       string `toml:"endpoint"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxTokens      int    `toml:"max_tokens"`
	Weights        string `toml:"weights"`
}

// Workflow contains orchestration knobs.
type Workflow struct {
	FlushEvery  int    `toml:"flush_every"`
	RunLockPath string `toml:"run_lock"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// API contains configuration for the HTTP surface.
type API struct {
	Bind string `toml:"bind"`
}

// Config encapsulates all configuration values for callsense.
//
// Configuration sections by subsystem:
//   - Paths: local state, logs, documents, and the static catalog CSV
//   - Source: discovery/fetch endpoints, year range, and politeness
//   - Scoring: inference endpoint, chunk budget, and composite weighting
//   - Workflow: flush cadence and the single-run lock file
//   - Logging: log format and level
//   - API: HTTP bind address
type Config struct {
	Paths    Paths    `toml:"paths"`
	Source   Source   `toml:"source"`
	Scoring  Scoring  `toml:"scoring"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
	API      API      `toml:"api"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/callsense/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("callsense.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
// DocumentsDir is created best-effort so remote-only setups work without it.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.DocumentsDir) != "" {
		_ = os.MkdirAll(c.Paths.DocumentsDir, 0o755)
	}
	return nil
}

// LedgerPath returns the location of the processing ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "ledger.db")
}

// DatasetPath returns the location of the durable sentiment dataset.
func (c *Config) DatasetPath() string {
	return filepath.Join(c.Paths.DataDir, "sentiment_dataset.json")
}

// CustomCatalogPath returns the location of user-added catalog entries.
func (c *Config) CustomCatalogPath() string {
	return filepath.Join(c.Paths.DataDir, "custom_entities.json")
}

// RunLock returns the single-run lock file path, defaulting under DataDir.
func (c *Config) RunLock() string {
	if strings.TrimSpace(c.Workflow.RunLockPath) != "" {
		return c.Workflow.RunLockPath
	}
	return filepath.Join(c.Paths.DataDir, "run.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
