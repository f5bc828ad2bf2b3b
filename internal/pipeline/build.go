package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/claims"
	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/media"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/normalize"
	"github.com/ppiankov/veritas/internal/score"
	"github.com/ppiankov/veritas/internal/search"
	"github.com/ppiankov/veritas/internal/store"
	"github.com/ppiankov/veritas/internal/util"
	"github.com/ppiankov/veritas/internal/worker"
)

// NewFromConfig wires the production collaborators described by cfg.
// The caller owns the returned pipeline and must Close it.
func NewFromConfig(ctx context.Context, cfg *model.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	archive, err := media.NewArchive(ctx, cfg.Media)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open media archive: %w", err)
	}

	c := cache.New(cfg.Cache)
	limiter := worker.NewLimiterFromConfig(cfg.RateLimit)

	apiClient := util.NewHTTPClient(util.ClientOptions{
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	})
	scrapeClient := util.NewHTTPClient(util.ClientOptions{
		Timeout:      cfg.Scrape.Timeout,
		HTTPProxy:    cfg.HTTP.HTTPProxy,
		HTTPSProxy:   cfg.HTTP.HTTPSProxy,
		NoProxy:      cfg.HTTP.NoProxy,
		MaxRedirects: 5,
	})

	chain := llm.ChainFromConfig(cfg.LLM, apiClient, logger)
	if len(chain.Candidates()) == 0 {
		logger.Warn("no generative model candidates configured; verdicts will be degraded")
	}
	analyzer := llm.NewAnalyzer(chain, logger)

	return New(Options{
		Normalizer: normalize.New(normalize.NewFetcher(scrapeClient, cfg.Scrape, limiter), c, logger),
		Heuristic:  score.NewScorer(cfg.Heuristic),
		Claims:     claims.NewMatcher(cfg.Claims, apiClient, limiter, c, logger),
		Citations:  search.NewSearcher(cfg.Search, analyzer, apiClient, limiter, c, logger),
		Analyzer:   analyzer,
		Store:      st,
		Archive:    archive,
		ClampMode:  cfg.Fusion.ClampMode,
		Logger:     logger,
	}), nil
}

// Close releases the record store
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}
