package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/model"
)

const itemsJSON = `{"items":[
	{"title":"Fact check: no free laptops","link":"https://pib.gov.in/a","snippet":"PIB says fake","displayLink":"pib.gov.in"},
	{"title":"Two","link":"https://b.example/2","snippet":"s2","displayLink":"b.example"},
	{"title":"Three","link":"https://c.example/3","snippet":"s3","displayLink":"c.example"},
	{"title":"Four","link":"https://d.example/4","snippet":"s4","displayLink":"d.example"}
]}`

type fakeOptimizer struct {
	query string
	err   error
	calls int
}

func (f *fakeOptimizer) OptimizeQuery(ctx context.Context, content string) (string, error) {
	f.calls++
	return f.query, f.err
}

func newTestSearcher(baseURL string, opt QueryOptimizer, c cache.Cache) *Searcher {
	return NewSearcher(model.SearchConfig{
		APIKey:        "k",
		EngineID:      "cx1",
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		MaxResults:    3,
		OptimizeQuery: true,
	}, opt, &http.Client{}, nil, c, nil)
}

func TestFind_RewritesAndMaps(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customsearch/v1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("cx") != "cx1" || r.Header.Get("X-Goog-Api-Key") != "k" {
			t.Errorf("missing credentials in %s", r.URL.RawQuery)
		}
		if r.URL.Query().Has("key") {
			t.Errorf("api key must not travel in the query")
		}
		gotQuery = r.URL.Query().Get("q")
		_, _ = fmt.Fprint(w, itemsJSON)
	}))
	defer server.Close()

	opt := &fakeOptimizer{query: "PM free laptop scheme fact check"}
	found := newTestSearcher(server.URL, opt, nil).Find(context.Background(), "kya PM free laptop de rahe hain", false)

	if gotQuery != "PM free laptop scheme fact check" {
		t.Errorf("expected rewritten query, got %q", gotQuery)
	}
	if len(found) != 3 {
		t.Fatalf("expected 3 citations, got %d", len(found))
	}
	if found[0].Source != "pib.gov.in" || found[0].Title != "Fact check: no free laptops" || found[0].Link != "https://pib.gov.in/a" {
		t.Errorf("unexpected first citation %+v", found[0])
	}
}

func TestFind_RawURLSkipsRewrite(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = fmt.Fprint(w, `{"items":[]}`)
	}))
	defer server.Close()

	opt := &fakeOptimizer{query: "should not be used"}
	found := newTestSearcher(server.URL, opt, nil).Find(context.Background(), "https://unknown.example/story", true)

	if opt.calls != 0 {
		t.Errorf("optimizer should not run for raw URLs")
	}
	if gotQuery != "https://unknown.example/story" {
		t.Errorf("expected the URL as query, got %q", gotQuery)
	}
	if found == nil || len(found) != 0 {
		t.Errorf("expected empty non-nil list, got %v", found)
	}
}

func TestFind_FailuresYieldEmpty(t *testing.T) {
	var hits atomic.Int32
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = fmt.Fprint(w, `{"error":{"code":403,"message":"quota"}}`)
	}))
	defer failing.Close()

	tests := []struct {
		name string
		opt  *fakeOptimizer
		url  string
	}{
		{"rewrite error", &fakeOptimizer{err: errors.New("chain exhausted")}, failing.URL},
		{"empty rewrite", &fakeOptimizer{query: ""}, failing.URL},
		{"api error", &fakeOptimizer{query: "q"}, failing.URL},
		{"unreachable", &fakeOptimizer{query: "q"}, "http://127.0.0.1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := newTestSearcher(tt.url, tt.opt, nil).Find(context.Background(), "claim", false)
			if found == nil || len(found) != 0 {
				t.Errorf("expected empty list, got %v", found)
			}
		})
	}

	if hits.Load() != 1 {
		t.Errorf("only the api error case should reach the server, got %d hits", hits.Load())
	}
}

func TestFind_NotConfigured(t *testing.T) {
	s := NewSearcher(model.SearchConfig{APIKey: "your_api_key_here", EngineID: "cx"}, nil, nil, nil, nil, nil)
	if s.Enabled() {
		t.Error("placeholder key should disable search")
	}
	if _, err := s.Search(context.Background(), "q"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestFind_UsesCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, itemsJSON)
	}))
	defer server.Close()

	c := cache.NewMemoryCache(time.Minute, time.Minute)
	s := newTestSearcher(server.URL, &fakeOptimizer{query: "same query"}, c)
	s.Find(context.Background(), "a", false)
	found := s.Find(context.Background(), "b", false)

	if hits.Load() != 1 {
		t.Errorf("expected one upstream call, got %d", hits.Load())
	}
	if len(found) != 3 {
		t.Errorf("expected cached citations, got %d", len(found))
	}
}

func TestFind_KeyNotLogged(t *testing.T) {
	var logs bytes.Buffer
	s := NewSearcher(model.SearchConfig{
		APIKey:   "SECRET-KEY-123",
		EngineID: "cx1",
		BaseURL:  "http://127.0.0.1:1",
		Timeout:  time.Second,
	}, nil, &http.Client{}, nil, nil, slog.New(slog.NewTextHandler(&logs, nil)))

	if found := s.Find(context.Background(), "https://unknown.example/story", true); len(found) != 0 {
		t.Fatalf("expected no citations from an unreachable host, got %v", found)
	}
	if logs.Len() == 0 {
		t.Fatal("expected the failure to be logged")
	}
	if strings.Contains(logs.String(), "SECRET-KEY-123") {
		t.Errorf("log exposes the API key: %s", logs.String())
	}
}

func TestNewSearcher_CapsMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, itemsJSON)
	}))
	defer server.Close()

	s := NewSearcher(model.SearchConfig{APIKey: "k", EngineID: "cx", BaseURL: server.URL, MaxResults: 10}, nil, &http.Client{}, nil, nil, nil)
	found, err := s.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 3 {
		t.Errorf("expected at most 3 citations, got %d", len(found))
	}
}
