// Package polygon adapts the Polygon.io REST client to the provider interface.
package polygon

import (
	"os"
	"time"
)

// Config holds configuration for the Polygon client.
type Config struct {
	APIKey   string
	Timeout  time.Duration
	MinDelay time.Duration // free tier allows 5 requests per minute
}

// LoadConfig loads Polygon configuration from environment variables.
func LoadConfig() Config {
	return Config{
		APIKey:   os.Getenv("POLYGON_API_KEY"),
		Timeout:  15 * time.Second,
		MinDelay: 12 * time.Second,
	}
}
