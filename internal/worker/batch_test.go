package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/veritas/internal/model"
)

type fakeAnalyzer struct {
	fail map[string]bool
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisRecord, error) {
	if f.fail[req.Content] {
		return nil, errors.New("analysis failed")
	}
	return &model.AnalysisRecord{Content: req.Content, Type: req.Type, FinalScore: 50}, nil
}

func TestParseBatch(t *testing.T) {
	input := strings.Join([]string{
		"# comment",
		"Breaking news about the election",
		"",
		"https://example.com/story",
		"headline\tPM announces new scheme",
		"Breaking news about the election",
	}, "\n")

	entries, err := ParseBatch(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries after dedup, got %d", len(entries))
	}

	want := []struct {
		line int
		typ  model.ContentType
	}{
		{2, model.TypeText},
		{4, model.TypeURL},
		{5, model.TypeHeadline},
	}
	for i, w := range want {
		if entries[i].Line != w.line || entries[i].Request.Type != w.typ {
			t.Errorf("entry %d: got line %d type %s, want line %d type %s",
				i, entries[i].Line, entries[i].Request.Type, w.line, w.typ)
		}
	}
	if entries[2].Request.Content != "PM announces new scheme" {
		t.Errorf("unexpected content %q", entries[2].Request.Content)
	}
}

func TestParseBatch_InvalidType(t *testing.T) {
	_, err := ParseBatch(strings.NewReader("video\tsomething"))
	if !errors.Is(err, model.ErrInput) {
		t.Errorf("expected ErrInput, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected line number in error, got %v", err)
	}
}

func TestBatchProcessor_Process(t *testing.T) {
	analyzer := &fakeAnalyzer{fail: map[string]bool{"bad": true}}
	processor := NewBatchProcessor(analyzer, 2)

	entries := []BatchEntry{
		{Line: 1, Request: model.AnalysisRequest{Content: "first", Type: model.TypeText}},
		{Line: 2, Request: model.AnalysisRequest{Content: "bad", Type: model.TypeText}},
		{Line: 3, Request: model.AnalysisRequest{Content: "third", Type: model.TypeText}},
	}

	results := processor.Process(context.Background(), entries)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Record == nil || results[0].Record.Content != "first" {
		t.Errorf("expected first result to be in order, got %+v", results[0])
	}
	if results[1].GetError() == nil || results[1].Record != nil {
		t.Errorf("expected failure for line 2, got %+v", results[1])
	}
	if results[2].Line != 3 {
		t.Errorf("expected line 3, got %d", results[2].Line)
	}

	if got := processor.Process(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected no results for empty input, got %d", len(got))
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.txt")
	content := "https://example.com\ntext\tsome claim\n# skipped\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	processor := NewBatchProcessor(&fakeAnalyzer{}, 2)
	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}

	if _, err := processor.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
