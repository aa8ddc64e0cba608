// Package nlu wraps the probabilistic text-understanding service. Providers
// are raw HTTP JSON clients; the Service adds rate limiting, caching, a hard
// timeout, and response parsing. Callers treat any error from this package
// as "service unavailable" and fall back to deterministic paths.
package nlu

import (
	"context"
	"time"
)

// Client is the provider-level transport interface.
type Client interface {
	// Understand sends the prompt and returns the raw model output text.
	Understand(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Config holds configuration for the understanding service.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}
