package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/metrics"
)

// ErrChainExhausted is returned when every candidate failed or answered empty
var ErrChainExhausted = errors.New("all model candidates failed")

// Generator produces text for a prompt. *Chain is the production implementation.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Candidate is one (provider, model) entry of the fallback order
type Candidate struct {
	Provider Provider
	Model    string
}

// String renders the candidate as provider/model
func (c Candidate) String() string {
	return c.Provider.Name() + "/" + c.Model
}

// Chain tries candidates strictly in order, once each
type Chain struct {
	candidates     []Candidate
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// NewChain creates a chain over candidates
func NewChain(candidates []Candidate, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{candidates: candidates, logger: logger}
}

// WithAttemptTimeout bounds every candidate call, including probes.
// Zero leaves attempts bounded only by the caller's context.
func (c *Chain) WithAttemptTimeout(d time.Duration) *Chain {
	c.attemptTimeout = d
	return c
}

// Candidates returns the configured order
func (c *Chain) Candidates() []Candidate {
	return c.candidates
}

// Generate returns the first non-empty answer. The request's Model field is
// replaced by each candidate's model. When all attempts fail the error wraps
// ErrChainExhausted together with every attempt's error.
func (c *Chain) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if len(c.candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates configured", ErrChainExhausted)
	}

	var errs []error
	for _, cand := range c.candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		attempt := req
		attempt.Model = cand.Model

		resp, err := c.call(ctx, cand, attempt)
		switch {
		case err != nil:
			metrics.ModelAttempts.WithLabelValues(cand.Provider.Name(), cand.Model, "error").Inc()
			c.logger.Warn("model candidate failed", "candidate", cand.String(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", cand, err))
			continue
		case resp == nil || strings.TrimSpace(resp.Text) == "":
			metrics.ModelAttempts.WithLabelValues(cand.Provider.Name(), cand.Model, "empty").Inc()
			c.logger.Warn("model candidate returned empty response", "candidate", cand.String())
			errs = append(errs, fmt.Errorf("%s: empty response", cand))
			continue
		}

		metrics.ModelAttempts.WithLabelValues(cand.Provider.Name(), cand.Model, "ok").Inc()
		if resp.Model == "" {
			resp.Model = cand.Model
		}
		return resp, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrChainExhausted, errors.Join(errs...))
}

func (c *Chain) call(ctx context.Context, cand Candidate, req GenerateRequest) (*GenerateResponse, error) {
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}
	return cand.Provider.Generate(ctx, req)
}

// ProbeResult is the outcome of probing one candidate
type ProbeResult struct {
	Candidate Candidate
	Reply     string
	Err       error
}

// Probe sends a tiny prompt to every candidate independently
func (c *Chain) Probe(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, 0, len(c.candidates))
	for _, cand := range c.candidates {
		resp, err := c.call(ctx, cand, GenerateRequest{
			Prompt:    "Reply with the single word OK.",
			Model:     cand.Model,
			MaxTokens: 16,
		})
		r := ProbeResult{Candidate: cand, Err: err}
		if err == nil {
			r.Reply = resp.Text
		}
		results = append(results, r)
	}
	return results
}
