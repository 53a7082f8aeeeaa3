package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateAcquisition(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.Threshold <= 0 || c.Matching.Threshold >= 1 {
		return errors.New("matching.threshold must be between 0 and 1 exclusive")
	}
	if c.Matching.SimilarityWeight < 0 || c.Matching.TokenWeight < 0 {
		return errors.New("matching weights must not be negative")
	}
	sum := c.Matching.SimilarityWeight + c.Matching.TokenWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("matching.similarity_weight and matching.token_weight must sum to 1, got %.3f", sum)
	}
	return nil
}

func (c *Config) validateAcquisition() error {
	return ensurePositiveMap(map[string]int{
		"acquisition.max_attempts":        c.Acquisition.MaxAttempts,
		"acquisition.attempt_retry_delay": c.Acquisition.AttemptRetryDelay,
		"acquisition.inter_item_delay":    c.Acquisition.InterItemDelay,
		"acquisition.element_wait":        c.Acquisition.ElementWait,
		"acquisition.new_context_wait":    c.Acquisition.NewContextWait,
		"acquisition.challenge_wait":      c.Acquisition.ChallengeWait,
		"acquisition.download_timeout":    c.Acquisition.DownloadTimeout,
	})
}

func (c *Config) validateStorage() error {
	if c.Storage.UploadRetries <= 0 {
		return errors.New("storage.upload_retries must be positive")
	}
	switch c.Storage.Provider {
	case "pixeldrain":
		if strings.TrimSpace(c.Storage.PixelDrain.APIKey) == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/reelsync/config.toml"
			}
			return fmt.Errorf("storage.pixeldrain.api_key is required. Set PIXELDRAIN_API_KEY env var or edit %s (create with 'reelsync config init')", defaultPath)
		}
	case "archive":
		if strings.TrimSpace(c.Storage.Archive.AccessKey) == "" || strings.TrimSpace(c.Storage.Archive.SecretKey) == "" {
			return errors.New("storage.archive.access_key and storage.archive.secret_key are required. Set ARCHIVE_ACCESS_KEY and ARCHIVE_SECRET_KEY env vars or edit the config file")
		}
		if strings.TrimSpace(c.Storage.Archive.MoviesCollection) == "" || strings.TrimSpace(c.Storage.Archive.TVShowsCollection) == "" {
			return errors.New("storage.archive collections must be set")
		}
	default:
		return fmt.Errorf("storage.provider must be %q or %q, got %q", "pixeldrain", "archive", c.Storage.Provider)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
