package client

import "time"

// DefaultAPIKey is the credential the ticker backend ships with.
const DefaultAPIKey = "demo-key-123"

// Config holds configuration for the ticker client.
type Config struct {
	// BaseURL is prepended to every request path. Empty means relative paths.
	BaseURL string
	// APIKey is sent in the X-API-KEY header.
	APIKey string
	// Timeout bounds each request. Zero disables the timeout.
	Timeout time.Duration
	// StrictStatus turns non-2xx responses into status failures instead of
	// treating the body as the payload.
	StrictStatus bool
	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:8000",
		APIKey:       DefaultAPIKey,
		Timeout:      15 * time.Second,
		MaxBodyBytes: 4 << 20,
	}
}
