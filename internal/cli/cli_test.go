package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/worker"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper(t)
	t.Setenv("PORT", "")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	want := model.DefaultConfig()
	if cfg.Server.Addr != want.Server.Addr {
		t.Errorf("addr = %q, want %q", cfg.Server.Addr, want.Server.Addr)
	}
	if cfg.Scrape.Timeout != want.Scrape.Timeout {
		t.Errorf("scrape timeout = %v, want %v", cfg.Scrape.Timeout, want.Scrape.Timeout)
	}
	if len(cfg.LLM.Candidates) != len(want.LLM.Candidates) {
		t.Fatalf("candidates = %d, want %d", len(cfg.LLM.Candidates), len(want.LLM.Candidates))
	}
	if cfg.LLM.Candidates[0] != want.LLM.Candidates[0] {
		t.Errorf("first candidate = %+v, want %+v", cfg.LLM.Candidates[0], want.LLM.Candidates[0])
	}
	if len(cfg.Heuristic.TrustedDomains) != len(model.DefaultTrustedDomains) {
		t.Errorf("trusted domains = %d, want %d", len(cfg.Heuristic.TrustedDomains), len(model.DefaultTrustedDomains))
	}
	if cfg.Fusion.ClampMode != model.ClampPerStep {
		t.Errorf("clamp mode = %q, want %q", cfg.Fusion.ClampMode, model.ClampPerStep)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	resetViper(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("GOOGLE_SEARCH_API_KEY", "legacy")
	t.Setenv("VERITAS_SEARCH_API_KEY", "prefixed")
	t.Setenv("VERITAS_SCRAPE_TIMEOUT", "9s")
	t.Setenv("VERITAS_STORE_DRIVER", "postgres")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("VERITAS_SERVER_ADDR", "")
	t.Setenv("PORT", "8080")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.LLM.GeminiAPIKey != "g-key" {
		t.Errorf("gemini key = %q", cfg.LLM.GeminiAPIKey)
	}
	if cfg.Search.APIKey != "prefixed" {
		t.Errorf("search key = %q, want prefixed to win", cfg.Search.APIKey)
	}
	if cfg.Scrape.Timeout != 9*time.Second {
		t.Errorf("scrape timeout = %v", cfg.Scrape.Timeout)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("driver = %q", cfg.Store.Driver)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoadConfig_PrefixedAddrBeatsPort(t *testing.T) {
	resetViper(t)
	t.Setenv("PORT", "8080")
	t.Setenv("VERITAS_SERVER_ADDR", "127.0.0.1:9000")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		declared string
		want     model.ContentType
		wantErr  bool
	}{
		{name: "bare text", content: "Aliens land in Delhi", want: model.TypeText},
		{name: "bare link", content: "https://www.bbc.com/news/1", want: model.TypeURL},
		{name: "declared headline", content: "Markets rally", declared: "headline", want: model.TypeHeadline},
		{name: "declared text keeps link as text", content: "https://x.test", declared: "text", want: model.TypeText},
		{name: "image rejected", content: "photo", declared: "image", wantErr: true},
		{name: "unknown type", content: "x", declared: "video", wantErr: true},
		{name: "blank content", content: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := buildRequest(tt.content, tt.declared)
			if tt.wantErr {
				if !errors.Is(err, model.ErrInput) {
					t.Fatalf("err = %v, want ErrInput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildRequest: %v", err)
			}
			if req.Type != tt.want {
				t.Errorf("type = %q, want %q", req.Type, tt.want)
			}
		})
	}
}

func TestWriteBatchResults(t *testing.T) {
	results := []*worker.AnalysisResult{
		{Line: 1, Record: &model.AnalysisRecord{ID: "a", FinalScore: 80, Category: model.CategoryReal}},
		{Line: 3, Error: errors.New("boom")},
		{Line: 4, Record: &model.AnalysisRecord{ID: "b", FinalScore: 20, Category: model.CategoryFake}},
	}

	var out, log bytes.Buffer
	success, failures := writeBatchResults(&out, &log, results)

	if success != 2 || failures != 1 {
		t.Fatalf("success=%d failures=%d, want 2 and 1", success, failures)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d JSON lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"id":"a"`) || !strings.Contains(lines[1], `"id":"b"`) {
		t.Errorf("unexpected output order: %v", lines)
	}
	if !strings.Contains(log.String(), "line 3: boom") {
		t.Errorf("failure not reported: %q", log.String())
	}
}

type namedProvider struct {
	name string
	down bool
}

func (p namedProvider) Name() string { return p.name }

func (p namedProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	return nil, errors.New("not used")
}

func (p namedProvider) IsAvailable(ctx context.Context) bool { return !p.down }

func TestCheckProviders(t *testing.T) {
	gemini := namedProvider{name: "gemini"}
	ollama := namedProvider{name: "ollama", down: true}
	candidates := []llm.Candidate{
		{Provider: gemini, Model: "a"},
		{Provider: gemini, Model: "b"},
		{Provider: ollama, Model: "llama3"},
	}

	var buf bytes.Buffer
	reachable := checkProviders(context.Background(), &buf, candidates)

	if reachable != 1 {
		t.Errorf("reachable = %d, want 1", reachable)
	}
	out := buf.String()
	if strings.Count(out, "provider gemini") != 1 {
		t.Errorf("gemini should be checked once:\n%s", out)
	}
	for _, want := range []string{"✓ provider gemini: reachable", "✗ provider ollama: unreachable"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReportProbes(t *testing.T) {
	gemini := namedProvider{name: "gemini"}
	cfg := model.LLMConfig{Candidates: []model.CandidateConfig{
		{Provider: "google", Model: "a"},
		{Provider: "gemini", Model: "b"},
		{Provider: "openai", Model: "gpt-4o-mini"},
	}}
	results := []llm.ProbeResult{
		{Candidate: llm.Candidate{Provider: gemini, Model: "a"}, Reply: " OK\n"},
		{Candidate: llm.Candidate{Provider: gemini, Model: "b"}, Err: errors.New("quota")},
	}

	var buf bytes.Buffer
	ok := reportProbes(&buf, cfg, results)

	if ok != 1 {
		t.Errorf("ok = %d, want 1", ok)
	}
	out := buf.String()
	for _, want := range []string{"✓ gemini/a: OK", "✗ gemini/b: quota", "- openai/gpt-4o-mini: not configured"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "google/a") {
		t.Errorf("alias should be folded into gemini:\n%s", out)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".veritas", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}
	if err := writeDefaultConfig(path); err == nil {
		t.Fatal("expected error when config already exists")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Veritas configuration file") {
		t.Errorf("missing header")
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("unmarshal written config: %v", err)
	}
	want := model.DefaultConfig()
	if cfg.Server.Addr != want.Server.Addr || cfg.LLM.Timeout != want.LLM.Timeout {
		t.Errorf("round-tripped config differs: addr=%q timeout=%v", cfg.Server.Addr, cfg.LLM.Timeout)
	}
}

func TestMaskSecrets(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Auth.JWTSecret = "secret"
	cfg.LLM.GeminiAPIKey = "key"

	masked := maskSecrets(*cfg)

	if masked.Auth.JWTSecret != "********" || masked.LLM.GeminiAPIKey != "********" {
		t.Errorf("secrets not masked: %+v %+v", masked.Auth, masked.LLM.GeminiAPIKey)
	}
	if masked.LLM.OpenAIAPIKey != "" {
		t.Errorf("empty secret should stay empty")
	}
	if cfg.Auth.JWTSecret != "secret" {
		t.Errorf("original config mutated")
	}
}

func TestVersionCommand(t *testing.T) {
	resetViper(t)
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := buf.String(); got != "veritas "+Version+"\n" {
		t.Errorf("output = %q", got)
	}
}
