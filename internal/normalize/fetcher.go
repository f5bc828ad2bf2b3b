package normalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/util"
	"github.com/ppiankov/veritas/internal/worker"
)

// ErrRobotsDisallowed is returned when robots.txt forbids the page
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// StatusError is a non-2xx page response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// fetchSleepFunc is overridden in tests
var fetchSleepFunc = time.Sleep

// Fetcher downloads pages with browser-like headers
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	retries    int
	limiter    *worker.Limiter
	robots     *util.RobotsChecker
}

// FetchResult is a downloaded page
type FetchResult struct {
	Body        []byte
	FinalURL    string
	ContentType string
}

// NewFetcher creates a fetcher. client should already carry the scrape timeout.
func NewFetcher(client *http.Client, cfg model.ScrapeConfig, limiter *worker.Limiter) *Fetcher {
	ua := cfg.UserAgent
	if ua == "" {
		ua = model.BrowserUserAgent
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  ua,
		maxBytes:   maxBytes,
		retries:    cfg.Retries,
		limiter:    limiter,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(client, ua)
	}
	return f
}

// Fetch retrieves a page once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.robots != nil {
		allowed, err := f.robots.Allowed(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, ErrRobotsDisallowed
		}
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        body,
		FinalURL:    resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// FetchWithRetry retries transient failures (network errors, 429, 5xx) with
// exponential backoff, up to the configured number of retries.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(1<<(attempt-1)) * 500 * time.Millisecond)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func retryable(err error) bool {
	if errors.Is(err, ErrRobotsDisallowed) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}
