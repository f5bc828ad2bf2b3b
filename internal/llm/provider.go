// Package llm talks to generative model providers and turns their output into verdicts.
package llm

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"
)

// Provider defines the interface for generative model providers
type Provider interface {
	// Name returns the provider name used in candidate lists
	Name() string

	// Generate returns the model's text completion for the request
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is reachable with the configured credentials
	IsAvailable(ctx context.Context) bool
}

// InlineImage is an image sent alongside the prompt
type InlineImage struct {
	MimeType string
	Data     []byte
}

// Base64 returns the standard base64 encoding of the image bytes
func (i *InlineImage) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// GenerateRequest contains the input for a single completion
type GenerateRequest struct {
	Prompt string

	// Model is the provider-specific model identifier
	Model string

	// Image is optional
	Image *InlineImage

	// MaxTokens and Temperature override the provider defaults when non-zero
	MaxTokens   int
	Temperature float64
}

// GenerateResponse contains the completion text
type GenerateResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds provider connection settings
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64

	// HTTPClient is used for all calls; nil means a client with Timeout
	HTTPClient *http.Client
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = defaultAttemptTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c Config) resolve(req GenerateRequest) (model string, maxTokens int, temperature float64) {
	model = req.Model
	if model == "" {
		model = c.Model
	}
	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1024
	}
	temperature = req.Temperature
	if temperature == 0 {
		temperature = c.Temperature
	}
	return model, maxTokens, temperature
}
