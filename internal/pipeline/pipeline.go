// Package pipeline runs the credibility analysis end to end.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/ppiankov/veritas/internal/media"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/normalize"
	"github.com/ppiankov/veritas/internal/score"
	"github.com/ppiankov/veritas/internal/store"
)

// ImageContentPrefix labels the content field of image records
const ImageContentPrefix = "[Image Upload]: "

const imageBaseline = 50

// Normalizer prepares submitted content
type Normalizer interface {
	Normalize(ctx context.Context, content string, declared model.ContentType) normalize.Result
}

// ClaimMatcher finds third-party fact-checks
type ClaimMatcher interface {
	Match(ctx context.Context, query string) []model.Claim
}

// CitationFinder finds corroborating or refuting sources
type CitationFinder interface {
	Find(ctx context.Context, content string, isRawUnscrapedURL bool) []model.Citation
}

// VerdictAnalyzer produces generative verdicts
type VerdictAnalyzer interface {
	AnalyzeText(ctx context.Context, content string, citations []model.Citation) model.Verdict
	AnalyzeImage(ctx context.Context, data []byte, mimeType string) *model.Verdict
}

// Options holds the pipeline collaborators. Archive may be nil.
type Options struct {
	Normalizer Normalizer
	Heuristic  *score.Scorer
	Claims     ClaimMatcher
	Citations  CitationFinder
	Analyzer   VerdictAnalyzer
	Store      store.Store
	Archive    media.Archive
	ClampMode  string
	Logger     *slog.Logger
}

// Pipeline orchestrates one analysis per call
type Pipeline struct {
	normalizer Normalizer
	heuristic  *score.Scorer
	claims     ClaimMatcher
	citations  CitationFinder
	analyzer   VerdictAnalyzer
	store      store.Store
	archive    media.Archive
	clampMode  string
	logger     *slog.Logger
}

// New creates a pipeline from its collaborators
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	heuristic := opts.Heuristic
	if heuristic == nil {
		heuristic = score.NewScorer(model.HeuristicConfig{})
	}
	mode := opts.ClampMode
	if mode == "" {
		mode = model.ClampPerStep
	}

	return &Pipeline{
		normalizer: opts.Normalizer,
		heuristic:  heuristic,
		claims:     opts.Claims,
		citations:  opts.Citations,
		analyzer:   opts.Analyzer,
		store:      opts.Store,
		archive:    opts.Archive,
		clampMode:  mode,
		logger:     logger,
	}
}

// Store returns the record store
func (p *Pipeline) Store() store.Store {
	return p.store
}

// Analyze runs the text pipeline and persists the record. Only input and
// persistence failures are returned; every other stage degrades to its
// default.
func (p *Pipeline) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisRecord, error) {
	if req.Type == "" {
		req.Type = model.TypeText
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	norm := p.normalizer.Normalize(ctx, req.Content, req.Type)
	content := norm.EffectiveContent

	var heuristic model.HeuristicResult
	if norm.IsScrapedURL {
		heuristic = p.heuristic.ScoreSource(content, req.Type, norm.SourceURL)
	} else {
		heuristic = p.heuristic.Score(content, req.Type)
	}

	rawUnscrapedURL := norm.SourceURL != "" && !norm.IsScrapedURL

	var (
		claims    []model.Claim
		citations []model.Citation
		verdict   model.Verdict
	)
	var wg conc.WaitGroup
	wg.Go(func() {
		claims = p.claims.Match(ctx, content)
	})
	wg.Go(func() {
		citations = p.citations.Find(ctx, content, rawUnscrapedURL)
		verdict = p.analyzer.AnalyzeText(ctx, content, citations)
	})
	wg.Wait()

	fused := score.Fuse(score.FusionInput{
		Heuristic: heuristic,
		Rating:    model.ClassifyClaims(claims),
		Verdict:   &verdict,
	}, p.clampMode)

	rec := &model.AnalysisRecord{
		Content:          content,
		Type:             req.Type,
		Breakdown:        fused.Breakdown,
		FinalScore:       fused.FinalScore,
		Category:         fused.Category,
		Claims:           claims,
		Citations:        citations,
		Verdict:          &verdict,
		HeuristicReasons: heuristic.Reasons,
	}

	if err := p.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	metrics.AnalysesTotal.WithLabelValues(string(rec.Type), string(rec.Category)).Inc()
	p.logger.Info("analysis complete",
		"id", rec.ID,
		"type", rec.Type,
		"score", rec.FinalScore,
		"category", rec.Category,
		"claims", len(claims),
		"citations", len(citations),
		"degraded", verdict.Degraded,
		"scrape_failed", norm.ScrapeFailed,
		"duration", time.Since(start),
	)
	return rec, nil
}

// ImageUpload is one uploaded image
type ImageUpload struct {
	Data     []byte
	MimeType string // Declared by the client; sniffing wins
	Filename string
}

// AnalyzeImage inspects and analyzes an uploaded image. Without a model
// verdict the record keeps the neutral baseline.
func (p *Pipeline) AnalyzeImage(ctx context.Context, up ImageUpload) (*model.AnalysisRecord, error) {
	info, err := media.Inspect(up.Data, up.MimeType)
	if err != nil {
		return nil, err
	}

	verdict := p.analyzer.AnalyzeImage(ctx, up.Data, info.MimeType)

	heuristic := model.HeuristicResult{Score: imageBaseline, Reasons: info.Reasons()}
	fused := score.Fuse(score.FusionInput{
		Heuristic: heuristic,
		Rating:    model.RatingNone,
		Verdict:   verdict,
	}, p.clampMode)

	mediaInfo := info.MediaInfo(int64(len(up.Data)))
	if p.archive != nil {
		start := time.Now()
		key, err := p.archive.Put(ctx, uuid.NewString(), up.Data, info.MimeType)
		metrics.StageDuration.WithLabelValues(metrics.StageArchive).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.StageFailures.WithLabelValues(metrics.StageArchive).Inc()
			p.logger.Warn("image archive failed", "error", err)
		} else {
			mediaInfo.ArchiveKey = key
		}
	}

	name := strings.TrimSpace(up.Filename)
	if name == "" {
		name = "image"
	}

	rec := &model.AnalysisRecord{
		Content:          ImageContentPrefix + name,
		Type:             model.TypeImage,
		Breakdown:        fused.Breakdown,
		FinalScore:       fused.FinalScore,
		Category:         fused.Category,
		Verdict:          verdict,
		HeuristicReasons: heuristic.Reasons,
		Media:            mediaInfo,
	}

	if err := p.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("save image analysis: %w", err)
	}

	metrics.AnalysesTotal.WithLabelValues(string(rec.Type), string(rec.Category)).Inc()
	p.logger.Info("image analysis complete",
		"id", rec.ID,
		"score", rec.FinalScore,
		"category", rec.Category,
		"verdict", verdict != nil,
		"format", info.Format,
	)
	return rec, nil
}

// Vote applies a community vote
func (p *Pipeline) Vote(ctx context.Context, id string, dir model.VoteDirection) (*model.AnalysisRecord, error) {
	return p.store.ApplyVote(ctx, id, dir)
}

// SetStatus records a moderation decision
func (p *Pipeline) SetStatus(ctx context.Context, id string, status model.Status) (*model.AnalysisRecord, error) {
	return p.store.SetStatus(ctx, id, status)
}

// Ping checks the record store
func (p *Pipeline) Ping(ctx context.Context) error {
	return p.store.Ping(ctx)
}

// List returns stored records newest first
func (p *Pipeline) List(ctx context.Context, filter store.Filter) ([]*model.AnalysisRecord, error) {
	return p.store.List(ctx, filter)
}
