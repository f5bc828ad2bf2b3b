// Package search finds corroborating or refuting sources for submitted content.
package search

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
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/worker"
)

const (
	placeholderKey   = "your_api_key_here"
	citationCacheTTL = time.Hour
	maxRetained      = 3

	// apiKeyHeader keeps the key out of URLs, and so out of *url.Error logs
	apiKeyHeader = "X-Goog-Api-Key"
)

// ErrNotConfigured is returned when the search key or engine id is missing
var ErrNotConfigured = errors.New("custom search not configured")

// QueryOptimizer rewrites content into a concise search query
type QueryOptimizer interface {
	OptimizeQuery(ctx context.Context, content string) (string, error)
}

// Searcher queries the Google Custom Search JSON API
type Searcher struct {
	apiKey     string
	engineID   string
	baseURL    string
	maxResults int
	timeout    time.Duration
	optimize   bool
	optimizer  QueryOptimizer
	httpClient *http.Client
	limiter    *worker.Limiter
	cache      cache.Cache
	logger     *slog.Logger
}

type searchResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		DisplayLink string `json:"displayLink"`
	} `json:"items"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewSearcher creates a searcher. optimizer may be nil, in which case
// content is searched verbatim.
func NewSearcher(cfg model.SearchConfig, optimizer QueryOptimizer, client *http.Client, limiter *worker.Limiter, c cache.Cache, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.googleapis.com"
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > maxRetained {
		maxResults = maxRetained
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == placeholderKey {
		apiKey = ""
	}

	return &Searcher{
		apiKey:     apiKey,
		engineID:   strings.TrimSpace(cfg.EngineID),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxResults: maxResults,
		timeout:    timeout,
		optimize:   cfg.OptimizeQuery,
		optimizer:  optimizer,
		httpClient: client,
		limiter:    limiter,
		cache:      c,
		logger:     logger,
	}
}

// Enabled reports whether both the key and engine id are set
func (s *Searcher) Enabled() bool {
	return s.apiKey != "" && s.engineID != ""
}

// Find returns up to maxResults citations for content. A raw URL that could
// not be scraped is searched as-is; anything else is rewritten first. Any
// failure yields an empty list.
func (s *Searcher) Find(ctx context.Context, content string, isRawUnscrapedURL bool) []model.Citation {
	if !s.Enabled() {
		return []model.Citation{}
	}

	query := strings.TrimSpace(content)
	if !isRawUnscrapedURL && s.optimize && s.optimizer != nil {
		start := time.Now()
		rewritten, err := s.optimizer.OptimizeQuery(ctx, content)
		metrics.StageDuration.WithLabelValues(metrics.StageRewrite).Observe(time.Since(start).Seconds())
		if err == nil && strings.TrimSpace(rewritten) == "" {
			err = errors.New("empty query rewrite")
		}
		if err != nil {
			metrics.StageFailures.WithLabelValues(metrics.StageRewrite).Inc()
			s.logger.Warn("query rewrite failed", "error", err)
			return []model.Citation{}
		}
		query = strings.TrimSpace(rewritten)
	}
	if query == "" {
		return []model.Citation{}
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(metrics.StageSearch).Observe(time.Since(start).Seconds())
	}()

	key := cache.Key("search", query)
	var cached []model.Citation
	hit := cache.GetJSON(s.cache, key, &cached)
	metrics.CacheLookups.WithLabelValues("search", metrics.CacheResult(hit)).Inc()
	if hit {
		return cached
	}

	found, err := s.Search(ctx, query)
	if err != nil {
		metrics.StageFailures.WithLabelValues(metrics.StageSearch).Inc()
		s.logger.Warn("citation search failed", "query", truncate(query, 80), "error", err)
		return []model.Citation{}
	}
	if len(found) > 0 {
		if err := cache.SetJSON(s.cache, key, found, citationCacheTTL); err != nil {
			s.logger.Debug("search cache write failed", "error", err)
		}
	}
	return found
}

// Search performs a single customsearch call
func (s *Searcher) Search(ctx context.Context, query string) ([]model.Citation, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("cx", s.engineID)
	params.Set("q", query)
	endpoint := s.baseURL + "/customsearch/v1?" + params.Encode()

	if err := s.limiter.Wait(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, s.apiKey)

	resp, err := s.httpClient.Do(req)
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

	items := parsed.Items
	if len(items) > s.maxResults {
		items = items[:s.maxResults]
	}
	out := make([]model.Citation, 0, len(items))
	for _, it := range items {
		out = append(out, model.Citation{
			Title:   it.Title,
			Link:    it.Link,
			Snippet: it.Snippet,
			Source:  it.DisplayLink,
		})
	}
	return out, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
