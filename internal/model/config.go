package model

import "time"

// Config is the complete service configuration.
// Defaults come from DefaultConfig; viper overlays file, env and flags.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Auth        AuthConfig        `yaml:"auth" mapstructure:"auth"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Scrape      ScrapeConfig      `yaml:"scrape" mapstructure:"scrape"`
	Claims      ClaimsConfig      `yaml:"claims" mapstructure:"claims"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Heuristic   HeuristicConfig   `yaml:"heuristic" mapstructure:"heuristic"`
	Fusion      FusionConfig      `yaml:"fusion" mapstructure:"fusion"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Media       MediaConfig       `yaml:"media" mapstructure:"media"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig controls the HTTP surface
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	CORSEnabled    bool          `yaml:"cors_enabled" mapstructure:"cors_enabled"`
	MaxImageBytes  int64         `yaml:"max_image_bytes" mapstructure:"max_image_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MetricsEnabled bool          `yaml:"metrics_enabled" mapstructure:"metrics_enabled"`
}

// AuthConfig controls the credential check on vote and status calls
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret,omitempty" mapstructure:"jwt_secret"`
	Issuer    string        `yaml:"issuer" mapstructure:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// StoreConfig selects the record store
type StoreConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, mongo
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	Database string `yaml:"database" mapstructure:"database"` // Mongo database name
}

// HTTPConfig applies to every outbound API client
type HTTPConfig struct {
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ScrapeConfig controls link metadata extraction
type ScrapeConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	Retries       int           `yaml:"retries" mapstructure:"retries"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// ClaimsConfig configures the fact-check claims service
type ClaimsConfig struct {
	APIKey       string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxClaims    int           `yaml:"max_claims" mapstructure:"max_claims"`
	LanguageCode string        `yaml:"language_code,omitempty" mapstructure:"language_code"`
}

// SearchConfig configures the web search service
type SearchConfig struct {
	APIKey        string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	EngineID      string        `yaml:"engine_id,omitempty" mapstructure:"engine_id"`
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxResults    int           `yaml:"max_results" mapstructure:"max_results"`
	OptimizeQuery bool          `yaml:"optimize_query" mapstructure:"optimize_query"`
}

// CandidateConfig names one entry of the generative fallback chain
type CandidateConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Model    string `yaml:"model" mapstructure:"model"`
}

// LLMConfig configures the generative providers and the fallback order
type LLMConfig struct {
	Candidates       []CandidateConfig `yaml:"candidates" mapstructure:"candidates"`
	GeminiAPIKey     string            `yaml:"gemini_api_key,omitempty" mapstructure:"gemini_api_key"`
	OpenAIAPIKey     string            `yaml:"openai_api_key,omitempty" mapstructure:"openai_api_key"`
	AnthropicAPIKey  string            `yaml:"anthropic_api_key,omitempty" mapstructure:"anthropic_api_key"`
	GeminiBaseURL    string            `yaml:"gemini_base_url,omitempty" mapstructure:"gemini_base_url"`
	OpenAIBaseURL    string            `yaml:"openai_base_url,omitempty" mapstructure:"openai_base_url"`
	AnthropicBaseURL string            `yaml:"anthropic_base_url,omitempty" mapstructure:"anthropic_base_url"`
	OllamaBaseURL    string            `yaml:"ollama_base_url,omitempty" mapstructure:"ollama_base_url"`
	Timeout          time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens        int               `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature      float64           `yaml:"temperature" mapstructure:"temperature"`
}

// HeuristicConfig holds the curated domain lists
type HeuristicConfig struct {
	TrustedDomains    []string `yaml:"trusted_domains" mapstructure:"trusted_domains"`
	SuspiciousDomains []string `yaml:"suspicious_domains" mapstructure:"suspicious_domains"`
}

// Clamp modes for score fusion
const (
	ClampPerStep = "per-step"
	ClampFinal   = "final"
)

// FusionConfig selects how fusion clamps intermediate scores
type FusionConfig struct {
	ClampMode string `yaml:"clamp_mode" mapstructure:"clamp_mode"`
}

// CacheConfig controls caching of external lookups
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir,omitempty" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig throttles outbound calls per host
type RateLimitConfig struct {
	RequestsPerSecond float64          `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int              `yaml:"burst" mapstructure:"burst"`
	Hosts             []HostRateConfig `yaml:"hosts" mapstructure:"hosts"`
}

// HostRateConfig overrides the default rate for one host
type HostRateConfig struct {
	Host              string  `yaml:"host" mapstructure:"host"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// MediaConfig controls where uploaded images are archived
type MediaConfig struct {
	Archive string   `yaml:"archive" mapstructure:"archive"` // none, fs, s3
	Dir     string   `yaml:"dir,omitempty" mapstructure:"dir"`
	S3      S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config contains S3-compatible object storage settings
type S3Config struct {
	Endpoint        string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket,omitempty" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style" mapstructure:"use_path_style"`
}

// ConcurrencyConfig bounds batch processing
type ConcurrencyConfig struct {
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// DefaultTrustedDomains are news and government hosts that earn the domain bonus
var DefaultTrustedDomains = []string{
	"bbc.com", "cnn.com", "reuters.com", "nytimes.com", "theguardian.com", "who.int", "gov.in",
	"zeebiz.com", "ndtv.com", "indiatoday.in", "thehindu.com", "timesofindia.indiatimes.com",
	"hindustantimes.com", "indianexpress.com", "news18.com", "livemint.com", "pib.gov.in",
}

// DefaultSuspiciousDomains are hosts that earn the domain penalty
var DefaultSuspiciousDomains = []string{
	"fakenews.com", "conspiracy.net", "clickbait.org", "boredpanda.com",
}

// BrowserUserAgent is sent when fetching pages for metadata
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":5000",
			CORSEnabled:    true,
			MaxImageBytes:  10 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   3 * time.Minute,
			MetricsEnabled: true,
		},
		Auth: AuthConfig{
			Issuer:   "veritas",
			TokenTTL: 24 * time.Hour,
		},
		Store: StoreConfig{
			Driver:   "sqlite",
			DSN:      "veritas.db",
			Database: "veritas",
		},
		HTTP: HTTPConfig{
			UserAgent:    "veritas/0.1 (+https://github.com/ppiankov/veritas)",
			MaxBodyBytes: 2_000_000,
		},
		Scrape: ScrapeConfig{
			Timeout:      5 * time.Second,
			UserAgent:    BrowserUserAgent,
			MaxBodyBytes: 2_000_000,
		},
		Claims: ClaimsConfig{
			BaseURL:   "https://factchecktools.googleapis.com",
			Timeout:   10 * time.Second,
			MaxClaims: 3,
		},
		Search: SearchConfig{
			BaseURL:       "https://www.googleapis.com",
			Timeout:       10 * time.Second,
			MaxResults:    3,
			OptimizeQuery: true,
		},
		LLM: LLMConfig{
			Candidates: []CandidateConfig{
				{Provider: "gemini", Model: "gemini-2.0-flash"},
				{Provider: "gemini", Model: "gemini-2.5-flash"},
				{Provider: "gemini", Model: "gemini-2.0-flash-001"},
				{Provider: "gemini", Model: "gemini-flash-latest"},
			},
			OllamaBaseURL: "http://localhost:11434",
			Timeout:       45 * time.Second,
			MaxTokens:     1024,
			Temperature:   0.2,
		},
		Heuristic: HeuristicConfig{
			TrustedDomains:    append([]string(nil), DefaultTrustedDomains...),
			SuspiciousDomains: append([]string(nil), DefaultSuspiciousDomains...),
		},
		Fusion: FusionConfig{
			ClampMode: ClampPerStep,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Media: MediaConfig{
			Archive: "none",
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers: 4,
		},
	}
}
