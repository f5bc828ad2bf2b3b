package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
)

// ErrEmptyQuery is returned when the rewrite produced nothing usable
var ErrEmptyQuery = errors.New("query rewrite returned empty text")

// Analyzer turns chain output into validated verdicts
type Analyzer struct {
	gen    Generator
	logger *slog.Logger
	now    func() time.Time
}

// NewAnalyzer creates an analyzer over gen
func NewAnalyzer(gen Generator, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{gen: gen, logger: logger, now: time.Now}
}

// AnalyzeText never fails: on an exhausted chain or unusable output it
// returns the degraded verdict.
func (a *Analyzer) AnalyzeText(ctx context.Context, content string, citations []model.Citation) model.Verdict {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(metrics.StageModel).Observe(time.Since(start).Seconds())
	}()

	resp, err := a.gen.Generate(ctx, GenerateRequest{Prompt: BuildTextPrompt(content, citations, a.now())})
	if err != nil {
		return a.degraded(err)
	}

	v, err := parseVerdict(resp.Text, model.VerdictText)
	if err != nil {
		return a.degraded(err)
	}
	v.Model = resp.Model
	return v
}

func (a *Analyzer) degraded(err error) model.Verdict {
	metrics.StageFailures.WithLabelValues(metrics.StageModel).Inc()
	a.logger.Warn("generative analysis degraded", "error", err)
	return model.DegradedVerdict(errorNote(err))
}

// AnalyzeImage returns nil when no usable verdict could be produced
func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte, mimeType string) *model.Verdict {
	resp, err := a.gen.Generate(ctx, GenerateRequest{
		Prompt: ImagePrompt,
		Image:  &InlineImage{MimeType: mimeType, Data: data},
	})
	if err != nil {
		metrics.StageFailures.WithLabelValues(metrics.StageModel).Inc()
		a.logger.Warn("image analysis failed", "error", err)
		return nil
	}

	v, err := parseVerdict(resp.Text, model.VerdictImage)
	if err != nil {
		metrics.StageFailures.WithLabelValues(metrics.StageModel).Inc()
		a.logger.Warn("image analysis unparsable", "error", err)
		return nil
	}
	v.Model = resp.Model
	return &v
}

// OptimizeQuery rewrites content into a concise English search query.
// The token limit is left to the provider default: thinking models spend
// part of it before emitting any text.
func (a *Analyzer) OptimizeQuery(ctx context.Context, content string) (string, error) {
	resp, err := a.gen.Generate(ctx, GenerateRequest{Prompt: BuildQueryPrompt(content)})
	if err != nil {
		return "", err
	}
	q := cleanQuery(resp.Text)
	if q == "" {
		return "", ErrEmptyQuery
	}
	return q, nil
}

func cleanQuery(s string) string {
	s = stripCodeFences(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(strings.TrimSpace(s), "\"'`“”")
	return strings.Join(strings.Fields(s), " ")
}

type rawVerdict struct {
	Reasoning     string   `json:"reasoning"`
	Fallacies     []string `json:"fallacies"`
	Bias          string   `json:"bias"`
	TrustScore    *float64 `json:"trustScore"`
	Summary       *string  `json:"summary"`
	IsAIGenerated *bool    `json:"isAiGenerated"`
	Confidence    *float64 `json:"confidence"`
}

// parseVerdict validates model output. trustScore is required; numbers are
// rounded and clamped to [0,100].
func parseVerdict(text string, kind model.VerdictKind) (model.Verdict, error) {
	cleaned := stripCodeFences(text)

	var raw rawVerdict
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		obj := outermostObject(cleaned)
		if obj == "" {
			return model.Verdict{}, fmt.Errorf("parse verdict: %w", err)
		}
		if err := json.Unmarshal([]byte(obj), &raw); err != nil {
			return model.Verdict{}, fmt.Errorf("parse verdict: %w", err)
		}
	}

	if raw.TrustScore == nil {
		return model.Verdict{}, errors.New("verdict missing trustScore")
	}

	v := model.Verdict{
		Kind:       kind,
		TrustScore: clampPercent(*raw.TrustScore),
		Fallacies:  raw.Fallacies,
	}
	if v.Fallacies == nil {
		v.Fallacies = []string{}
	}
	if raw.Summary != nil {
		v.Summary = strings.TrimSpace(*raw.Summary)
	}

	switch kind {
	case model.VerdictImage:
		v.IsAIGenerated = raw.IsAIGenerated
		if raw.Confidence != nil {
			c := clampPercent(*raw.Confidence)
			v.Confidence = &c
		}
	default:
		v.Bias = strings.TrimSpace(raw.Bias)
		v.Reasoning = strings.TrimSpace(raw.Reasoning)
	}
	return v, nil
}

func clampPercent(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	r := math.Round(f)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return int(r)
}

var codeFence = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*(.+?)\\s*```\\s*$")

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFence.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}

func outermostObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func errorNote(err error) string {
	msg := err.Error()
	if errors.Is(err, ErrChainExhausted) {
		msg = ErrChainExhausted.Error()
	}
	if r := []rune(msg); len(r) > 200 {
		msg = string(r[:200])
	}
	return msg
}
