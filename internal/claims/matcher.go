// Package claims looks up third-party fact-checks for submitted content.
package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/extract"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/worker"
)

// placeholderKey is the value shipped in sample .env files
const placeholderKey = "your_api_key_here"

const (
	claimsCacheTTL   = time.Hour
	minRetryQueryLen = 5
	maxRetained      = 3

	// apiKeyHeader keeps the key out of URLs, and so out of *url.Error logs
	apiKeyHeader = "X-Goog-Api-Key"
)

// ErrNoAPIKey is returned when the claims service is not configured
var ErrNoAPIKey = errors.New("fact check api key not configured")

// Matcher queries the Google Fact Check Tools claims search
type Matcher struct {
	apiKey       string
	baseURL      string
	languageCode string
	maxClaims    int
	timeout      time.Duration
	httpClient   *http.Client
	limiter      *worker.Limiter
	cache        cache.Cache
	logger       *slog.Logger
}

type searchResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		Claimant    string `json:"claimant"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
				Site string `json:"site"`
			} `json:"publisher"`
			URL           string `json:"url"`
			Title         string `json:"title"`
			TextualRating string `json:"textualRating"`
		} `json:"claimReview"`
	} `json:"claims"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewMatcher creates a matcher. limiter, c and logger may be nil.
func NewMatcher(cfg model.ClaimsConfig, client *http.Client, limiter *worker.Limiter, c cache.Cache, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://factchecktools.googleapis.com"
	}
	maxClaims := cfg.MaxClaims
	if maxClaims <= 0 || maxClaims > maxRetained {
		maxClaims = maxRetained
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == placeholderKey {
		apiKey = ""
	}

	return &Matcher{
		apiKey:       apiKey,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		languageCode: cfg.LanguageCode,
		maxClaims:    maxClaims,
		timeout:      timeout,
		httpClient:   client,
		limiter:      limiter,
		cache:        c,
		logger:       logger,
	}
}

// Enabled reports whether an API key is configured
func (m *Matcher) Enabled() bool {
	return m.apiKey != ""
}

// Match returns up to maxClaims fact-checks for query. When the full query
// finds nothing it retries once with the keyword-reduced form. Failures yield
// an empty list.
func (m *Matcher) Match(ctx context.Context, query string) []model.Claim {
	if !m.Enabled() {
		return []model.Claim{}
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(metrics.StageClaims).Observe(time.Since(start).Seconds())
	}()

	found, err := m.lookup(ctx, query)
	if err != nil {
		m.fail(query, err)
		return []model.Claim{}
	}

	if len(found) == 0 {
		reduced := extract.Keywords(query)
		if utf8.RuneCountInString(reduced) > minRetryQueryLen {
			m.logger.Debug("retrying claims search with keywords", "keywords", reduced)
			found, err = m.lookup(ctx, reduced)
			if err != nil {
				m.fail(reduced, err)
				return []model.Claim{}
			}
		}
	}

	if len(found) > m.maxClaims {
		found = found[:m.maxClaims]
	}
	return found
}

func (m *Matcher) fail(query string, err error) {
	metrics.StageFailures.WithLabelValues(metrics.StageClaims).Inc()
	m.logger.Warn("claims search failed", "query", truncate(query, 80), "error", err)
}

func (m *Matcher) lookup(ctx context.Context, query string) ([]model.Claim, error) {
	key := cache.Key("claims", m.languageCode, query)
	var cached []model.Claim
	hit := cache.GetJSON(m.cache, key, &cached)
	metrics.CacheLookups.WithLabelValues("claims", metrics.CacheResult(hit)).Inc()
	if hit {
		return cached, nil
	}

	found, err := m.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		if err := cache.SetJSON(m.cache, key, found, claimsCacheTTL); err != nil {
			m.logger.Debug("claims cache write failed", "error", err)
		}
	}
	return found, nil
}

// Search performs a single claims:search call
func (m *Matcher) Search(ctx context.Context, query string) ([]model.Claim, error) {
	if !m.Enabled() {
		return nil, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("query", query)
	if m.languageCode != "" {
		params.Set("languageCode", m.languageCode)
	}
	endpoint := m.baseURL + "/v1alpha1/claims:search?" + params.Encode()

	if err := m.limiter.Wait(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	out := make([]model.Claim, 0, len(parsed.Claims))
	for _, c := range parsed.Claims {
		claim := model.Claim{
			Claimant: c.Claimant,
			Text:     c.Text,
		}
		if len(c.ClaimReview) > 0 {
			review := c.ClaimReview[0]
			claim.Rating = review.TextualRating
			claim.ReviewURL = review.URL
			claim.Publisher = review.Publisher.Name
			if claim.Publisher == "" {
				claim.Publisher = review.Publisher.Site
			}
		}
		out = append(out, claim)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
