package llm

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

// defaultAttemptTimeout applies when llm.timeout is unset
const defaultAttemptTimeout = 45 * time.Second

// NewProvider creates a provider by name
func NewProvider(name string, config Config) (Provider, error) {
	switch strings.ToLower(name) {
	case "gemini", "google":
		return NewGeminiProvider(config)
	case "openai":
		return NewOpenAIProvider(config)
	case "anthropic", "claude":
		return NewAnthropicProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: gemini, openai, anthropic, ollama)", name)
	}
}

// ConfigFor extracts one provider's settings from the llm config section
func ConfigFor(name string, cfg model.LLMConfig, client *http.Client) Config {
	c := Config{
		Timeout:     cfg.Timeout,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		HTTPClient:  client,
	}
	switch strings.ToLower(name) {
	case "gemini", "google":
		c.APIKey, c.BaseURL = cfg.GeminiAPIKey, cfg.GeminiBaseURL
	case "openai":
		c.APIKey, c.BaseURL = cfg.OpenAIAPIKey, cfg.OpenAIBaseURL
	case "anthropic", "claude":
		c.APIKey, c.BaseURL = cfg.AnthropicAPIKey, cfg.AnthropicBaseURL
	case "ollama":
		c.BaseURL = cfg.OllamaBaseURL
	}
	return c
}

// ChainFromConfig builds the fallback chain in configured order. Candidates
// whose provider cannot be constructed (unknown name, missing key) are
// skipped with a warning, so the result may be empty.
func ChainFromConfig(cfg model.LLMConfig, client *http.Client, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}

	providers := make(map[string]Provider)
	failed := make(map[string]bool)
	var candidates []Candidate
	for _, cc := range cfg.Candidates {
		name := strings.ToLower(strings.TrimSpace(cc.Provider))
		if failed[name] {
			continue
		}
		p, ok := providers[name]
		if !ok {
			var err error
			p, err = NewProvider(name, ConfigFor(name, cfg, client))
			if err != nil {
				logger.Warn("skipping model provider", "provider", cc.Provider, "error", err)
				failed[name] = true
				continue
			}
			providers[name] = p
		}
		candidates = append(candidates, Candidate{Provider: p, Model: cc.Model})
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	return NewChain(candidates, logger).WithAttemptTimeout(timeout)
}
