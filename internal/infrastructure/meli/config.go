package meli

import (
	"errors"
	"time"
)

var (
	// ErrConfigMissingBaseURL indicates no API base URL was configured
	ErrConfigMissingBaseURL = errors.New("meli: config missing API base URL")
	// ErrConfigMissingToken indicates no access token was configured
	ErrConfigMissingToken = errors.New("meli: config missing access token")
)

// Config holds marketplace client settings
type Config struct {
	APIBaseURL   string
	AccessToken  string
	SellerID     string // resolved via users/me on first use when empty
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	BatchSize    int
	BatchDelay   time.Duration
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.AccessToken == "" {
		return ErrConfigMissingToken
	}
	return nil
}

// withDefaults fills unset tuning knobs
func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 2 * time.Second
	}
	if c.BatchSize <= 0 || c.BatchSize > maxBatchSize {
		c.BatchSize = maxBatchSize
	}
	if c.BatchDelay == 0 {
		c.BatchDelay = 2 * time.Second
	}
	return c
}
