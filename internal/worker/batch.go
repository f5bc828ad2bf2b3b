package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// Analyzer runs a single analysis request
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisRecord, error)
}

// AnalysisJob analyzes one batch entry
type AnalysisJob struct {
	Line     int
	Request  model.AnalysisRequest
	Analyzer Analyzer
}

// Execute runs the analysis
func (j *AnalysisJob) Execute(ctx context.Context) Result {
	rec, err := j.Analyzer.Analyze(ctx, j.Request)
	return &AnalysisResult{
		Line:    j.Line,
		Request: j.Request,
		Record:  rec,
		Error:   err,
	}
}

// AnalysisResult is the outcome of one batch entry
type AnalysisResult struct {
	Line    int
	Request model.AnalysisRequest
	Record  *model.AnalysisRecord
	Error   error
}

// GetError returns the analysis error, if any
func (r *AnalysisResult) GetError() error {
	return r.Error
}

// BatchEntry is a parsed line of a batch file
type BatchEntry struct {
	Line    int
	Request model.AnalysisRequest
}

// BatchProcessor analyzes many inputs with bounded concurrency
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// Process analyzes entries and returns results in input order
func (b *BatchProcessor) Process(ctx context.Context, entries []BatchEntry) []*AnalysisResult {
	if len(entries) == 0 {
		return []*AnalysisResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, e := range entries {
		pool.Submit(&AnalysisJob{
			Line:     e.Line,
			Request:  e.Request,
			Analyzer: b.analyzer,
		})
	}

	results := pool.Wait()

	out := make([]*AnalysisResult, len(results))
	for i, r := range results {
		out[i] = r.(*AnalysisResult)
	}
	return out
}

// ProcessFile reads a batch file and analyzes every entry
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*AnalysisResult, error) {
	entries, err := ReadBatchFile(path)
	if err != nil {
		return nil, err
	}
	return b.Process(ctx, entries), nil
}

// ReadBatchFile opens path and parses it with ParseBatch
func ReadBatchFile(path string) ([]BatchEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ParseBatch(file)
}

// ParseBatch reads one input per line. A line is either "<type>\t<content>"
// or bare content, in which case URLs are typed "url" and everything else "text".
// Blank lines and '#' comments are skipped; duplicates are dropped.
func ParseBatch(r io.Reader) ([]BatchEntry, error) {
	var entries []BatchEntry
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		req, err := parseBatchLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		key := string(req.Type) + "\x00" + req.Content
		if seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, BatchEntry{Line: lineNo, Request: req})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan batch file: %w", err)
	}
	return entries, nil
}

func parseBatchLine(line string) (model.AnalysisRequest, error) {
	if prefix, content, ok := strings.Cut(line, "\t"); ok {
		t, err := model.ParseContentType(strings.TrimSpace(prefix))
		if err != nil {
			return model.AnalysisRequest{}, err
		}
		req := model.AnalysisRequest{Content: strings.TrimSpace(content), Type: t}
		return req, req.Validate()
	}

	t := model.TypeText
	if model.LooksLikeURL(line) {
		t = model.TypeURL
	}
	return model.AnalysisRequest{Content: line, Type: t}, nil
}
