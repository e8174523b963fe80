// Package generate is the client side of the text generation capability.
//
// Every pipeline stage that needs SQL written for it sends one Request (a
// system instruction plus user content) and receives a single text blob.
// There are no retries and no streaming.
package generate

import (
	"context"
	"errors"
	"log/slog"
)

// ErrDisabled is returned by the Disabled generator.
var ErrDisabled = errors.New("generation is disabled: no API key configured")

// Request is one role-tagged instruction pair.
type Request struct {
	System string
	User   string
}

// Generator produces text for a Request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts an ordinary function to the Generator interface.
type Func func(ctx context.Context, req Request) (string, error)

// Generate calls f(ctx, req).
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Disabled is the generator used when no credentials are configured. Every
// call fails with ErrDisabled, which stages treat as an empty result.
type Disabled struct{}

// Generate always returns ErrDisabled.
func (Disabled) Generate(context.Context, Request) (string, error) {
	return "", ErrDisabled
}

// Config holds the connection and sampling settings for the generation
// endpoint.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Defaults used when the corresponding Config field is zero.
const (
	DefaultBaseURL   = "https://api.groq.com/openai/v1"
	DefaultModel     = "llama-3.3-70b-versatile"
	DefaultMaxTokens = 2000
)

// New returns an OpenAI-compatible client for cfg, or Disabled when cfg has
// no API key.
func New(cfg Config, logger *slog.Logger) Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.APIKey == "" {
		logger.Warn("generation API key not set; generated stages will be empty")
		return Disabled{}
	}
	return NewOpenAIClient(cfg, logger)
}
