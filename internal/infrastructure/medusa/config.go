package medusa

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Errors for client configuration
var (
	ErrConfigMissingBaseURL = errors.New("medusa: base URL is required")
	ErrConfigInvalidBaseURL = errors.New("medusa: base URL must be an absolute http(s) URL")
	ErrConfigMissingAPIKey  = errors.New("medusa: API key is required")
	ErrConfigInvalidRate    = errors.New("medusa: rate limit cannot be negative")
)

// Config holds the admin API connection settings
type Config struct {
	// BaseURL is the backend root, e.g. http://localhost:9000
	BaseURL string
	// APIKey is a secret admin API key
	APIKey string
	// Timeout bounds a single HTTP request
	Timeout time.Duration
	// RateLimit is the maximum requests per second, 0 disables limiting
	RateLimit float64
	// RateBurst is the number of requests allowed above the rate
	RateBurst int
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrConfigInvalidBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	if c.RateLimit < 0 {
		return ErrConfigInvalidRate
	}
	if c.RateBurst < 1 {
		c.RateBurst = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}
