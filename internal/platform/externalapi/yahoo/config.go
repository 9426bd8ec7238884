// Package yahoo provides a client for the Yahoo Finance chart endpoint.
package yahoo

import (
	"os"
	"time"
)

const (
	defaultBaseURL   = "https://query1.finance.yahoo.com"
	defaultTimeout   = 10 * time.Second
	defaultMinDelay  = 500 * time.Millisecond
	defaultUserAgent = "Mozilla/5.0 (compatible; ohlcv-ingestor/1.0)"
)

// Config holds configuration for the Yahoo chart client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	MinDelay  time.Duration
	UserAgent string
}

// LoadConfig loads Yahoo configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		BaseURL:   os.Getenv("YAHOO_BASE_URL"),
		Timeout:   defaultTimeout,
		MinDelay:  defaultMinDelay,
		UserAgent: defaultUserAgent,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return cfg
}
