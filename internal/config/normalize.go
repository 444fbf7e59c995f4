package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.DocumentsDir, err = expandPath(c.Paths.DocumentsDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.CatalogCSV) != "" {
		if c.Paths.CatalogCSV, err = expandPath(c.Paths.CatalogCSV); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.Workflow.RunLockPath) != "" {
		if c.Workflow.RunLockPath, err = expandPath(c.Workflow.RunLockPath); err != nil {
			return err
		}
	}

	c.Source.BaseURL = strings.TrimRight(strings.TrimSpace(c.Source.BaseURL), "/")
	c.Scoring.Endpoint = strings.TrimSpace(c.Scoring.Endpoint)
	c.Scoring.Weights = strings.ToLower(strings.TrimSpace(c.Scoring.Weights))
	if c.Scoring.Weights == "" {
		c.Scoring.Weights = defaultWeights
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	hosts := make([]string, 0, len(c.Source.AllowedHosts))
	for _, host := range c.Source.AllowedHosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	c.Source.AllowedHosts = hosts

	if c.Source.MaxLinks <= 0 {
		c.Source.MaxLinks = defaultMaxLinks
	}
	if c.Source.MinWords <= 0 {
		c.Source.MinWords = defaultMinWords
	}
	if c.Source.RequestsPerSecond <= 0 {
		c.Source.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Scoring.MaxTokens <= 0 {
		c.Scoring.MaxTokens = defaultMaxTokens
	}
	if c.Scoring.TimeoutSeconds <= 0 {
		c.Scoring.TimeoutSeconds = defaultScoringTimeout
	}
	if c.Workflow.FlushEvery <= 0 {
		c.Workflow.FlushEvery = defaultFlushEvery
	}

	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	return nil
}
