// Package normalize turns raw submissions into the text the scorers analyze.
package normalize

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/extract"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
)

// ScrapedPrefix marks content that was replaced by a page summary
const ScrapedPrefix = "[Analyzed Link Content]: "

const scrapeCacheTTL = 6 * time.Hour

// Result is the normalized form of a submission
type Result struct {
	EffectiveContent string
	// SourceURL is the submitted URL when the input was a link
	SourceURL    string
	IsScrapedURL bool
	ScrapeFailed bool
}

// PageFetcher retrieves a page body
type PageFetcher interface {
	FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error)
}

// Normalizer classifies inputs and scrapes link metadata
type Normalizer struct {
	fetcher PageFetcher
	cache   cache.Cache
	logger  *slog.Logger
}

// New creates a normalizer. c may be nil.
func New(fetcher PageFetcher, c cache.Cache, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{fetcher: fetcher, cache: c, logger: logger}
}

// Normalize never fails: a link that cannot be summarized is passed through unchanged.
func (n *Normalizer) Normalize(ctx context.Context, content string, declared model.ContentType) Result {
	trimmed := strings.TrimSpace(content)
	if !model.IsURLInput(trimmed, declared) {
		return Result{EffectiveContent: norm.NFC.String(trimmed)}
	}

	res := Result{EffectiveContent: trimmed, SourceURL: trimmed}

	text, ok := n.summarize(ctx, trimmed)
	if !ok {
		res.ScrapeFailed = true
		metrics.StageFailures.WithLabelValues(metrics.StageScrape).Inc()
		return res
	}

	res.EffectiveContent = ScrapedPrefix + text
	res.IsScrapedURL = true
	return res
}

func (n *Normalizer) summarize(ctx context.Context, rawURL string) (string, bool) {
	key := cache.Key("scrape", rawURL)
	var cached string
	hit := cache.GetJSON(n.cache, key, &cached)
	metrics.CacheLookups.WithLabelValues("scrape", metrics.CacheResult(hit)).Inc()
	if hit && cached != "" {
		return cached, true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		n.logger.Warn("scrape skipped: invalid url", "url", rawURL)
		return "", false
	}

	start := time.Now()
	page, err := n.fetcher.FetchWithRetry(ctx, rawURL)
	metrics.StageDuration.WithLabelValues(metrics.StageScrape).Observe(time.Since(start).Seconds())
	if err != nil {
		n.logger.Warn("scrape failed", "url", rawURL, "error", err)
		return "", false
	}

	text := pageSummary(page, parsed)
	if text == "" {
		n.logger.Warn("scrape found no usable text", "url", rawURL)
		return "", false
	}

	if err := cache.SetJSON(n.cache, key, text, scrapeCacheTTL); err != nil {
		n.logger.Debug("scrape cache write failed", "error", err)
	}
	return text, true
}

func pageSummary(page *FetchResult, pageURL *url.URL) string {
	meta, err := extract.ParseMetadata(bytes.NewReader(page.Body))
	if err == nil {
		if s := meta.Summary(); s != "" {
			return norm.NFC.String(s)
		}
	}

	if final, err := url.Parse(page.FinalURL); err == nil && final.Host != "" {
		pageURL = final
	}
	article, err := readability.FromReader(bytes.NewReader(page.Body), pageURL)
	if err != nil {
		return ""
	}
	return norm.NFC.String(strings.Join(strings.Fields(article.Title), " "))
}
