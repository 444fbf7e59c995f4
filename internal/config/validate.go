package config

import (
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	parsed, err := url.Parse(c.Source.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("source.base_url %q is not an absolute URL", c.Source.BaseURL)
	}
	if c.Source.StartYear > c.Source.EndYear {
		return fmt.Errorf("source.start_year %d exceeds source.end_year %d", c.Source.StartYear, c.Source.EndYear)
	}
	if c.Source.IndexTimeout <= 0 || c.Source.FetchTimeout <= 0 {
		return fmt.Errorf("source timeouts must be positive")
	}
	return nil
}

func (c *Config) validateScoring() error {
	if c.Scoring.Endpoint != "" {
		parsed, err := url.Parse(c.Scoring.Endpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("scoring.endpoint %q is not an absolute URL", c.Scoring.Endpoint)
		}
	}
	switch c.Scoring.Weights {
	case "canonical", "balanced":
	default:
		return fmt.Errorf("scoring.weights: unsupported value %q (expected canonical or balanced)", c.Scoring.Weights)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
