package claims

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/model"
)

const falseClaimJSON = `{"claims":[
	{"text":"Drinking hot water cures the virus","claimant":"Viral post","claimReview":[
		{"publisher":{"name":"FactCheckers","site":"factcheckers.org"},"url":"https://factcheckers.org/a","textualRating":"False"}]},
	{"text":"Second","claimReview":[{"publisher":{"site":"site-only.org"},"textualRating":"Misleading"}]},
	{"text":"Third","claimReview":[]},
	{"text":"Fourth","claimReview":[{"textualRating":"True"}]}
]}`

func newTestMatcher(baseURL string, c cache.Cache) *Matcher {
	return NewMatcher(model.ClaimsConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
		MaxClaims: 3,
	}, &http.Client{}, nil, c, nil)
}

func TestMatch_MapsAndTruncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1alpha1/claims:search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Query().Has("key") {
			t.Errorf("api key must not travel in the query")
		}
		_, _ = fmt.Fprint(w, falseClaimJSON)
	}))
	defer server.Close()

	found := newTestMatcher(server.URL, nil).Match(context.Background(), "hot water cures virus")
	if len(found) != 3 {
		t.Fatalf("expected 3 claims, got %d", len(found))
	}

	first := found[0]
	if first.Rating != "False" || first.Publisher != "FactCheckers" || first.ReviewURL != "https://factcheckers.org/a" || first.Claimant != "Viral post" {
		t.Errorf("unexpected first claim %+v", first)
	}
	if found[1].Publisher != "site-only.org" {
		t.Errorf("expected publisher site fallback, got %q", found[1].Publisher)
	}
	if found[2].Rating != "" {
		t.Errorf("claim without review should have empty rating, got %q", found[2].Rating)
	}
	if model.ClassifyClaims(found) != model.RatingNegative {
		t.Errorf("expected negative rating, got %s", model.ClassifyClaims(found))
	}
}

func TestMatch_RetriesWithKeywords(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("query"))
		n := len(queries)
		mu.Unlock()
		if n == 1 {
			_, _ = fmt.Fprint(w, `{}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"claims":[{"text":"x","claimReview":[{"textualRating":"Correct"}]}]}`)
	}))
	defer server.Close()

	found := newTestMatcher(server.URL, nil).Match(context.Background(), "Is the PM giving free laptops to students? Check this!")
	mu.Lock()
	defer mu.Unlock()
	if len(queries) != 2 {
		t.Fatalf("expected a retry, got queries %v", queries)
	}
	if queries[1] != "giving free laptops students this" {
		t.Errorf("unexpected reduced query %q", queries[1])
	}
	if model.ClassifyClaims(found) != model.RatingPositive {
		t.Errorf("expected positive rating, got %s", model.ClassifyClaims(found))
	}
}

func TestMatch_NoRetryForShortKeywords(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprint(w, `{"claims":[]}`)
	}))
	defer server.Close()

	found := newTestMatcher(server.URL, nil).Match(context.Background(), "is it fake news?")
	if len(found) != 0 {
		t.Errorf("expected no claims, got %d", len(found))
	}
	if calls.Load() != 1 {
		t.Errorf("expected no retry for a short reduced query, got %d calls", calls.Load())
	}
	if model.ClassifyClaims(found) != model.RatingNone {
		t.Errorf("expected none rating, got %s", model.ClassifyClaims(found))
	}
}

func TestMatch_FailuresYieldEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "broken json" {
			_, _ = fmt.Fprint(w, `{"claims":`)
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = fmt.Fprint(w, `{"error":{"code":403,"message":"API key not valid"}}`)
	}))
	defer server.Close()

	m := newTestMatcher(server.URL, nil)
	for _, q := range []string{"forbidden query", "broken json"} {
		if found := m.Match(context.Background(), q); found == nil || len(found) != 0 {
			t.Errorf("%q: expected empty non-nil list, got %v", q, found)
		}
	}

	if _, err := m.Search(context.Background(), "forbidden query"); err == nil || err.Error() != "API error (403): API key not valid" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestMatch_MissingOrPlaceholderKey(t *testing.T) {
	for _, key := range []string{"", "your_api_key_here"} {
		m := NewMatcher(model.ClaimsConfig{APIKey: key, BaseURL: "http://127.0.0.1:1"}, nil, nil, nil, nil)
		if m.Enabled() {
			t.Errorf("key %q should leave the matcher disabled", key)
		}
		if found := m.Match(context.Background(), "anything"); len(found) != 0 {
			t.Errorf("disabled matcher returned %v", found)
		}
		if _, err := m.Search(context.Background(), "anything"); err != ErrNoAPIKey {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	}
}

func TestMatch_CachesResults(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprint(w, falseClaimJSON)
	}))
	defer server.Close()

	m := newTestMatcher(server.URL, cache.NewMemoryCache(time.Minute, time.Minute))
	for i := 0; i < 3; i++ {
		if got := m.Match(context.Background(), "hot water cures virus"); len(got) != 3 {
			t.Fatalf("run %d: expected 3 claims, got %d", i, len(got))
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single upstream call, got %d", calls.Load())
	}
}

func TestMatch_KeyNotLogged(t *testing.T) {
	var logs bytes.Buffer
	m := NewMatcher(model.ClaimsConfig{
		APIKey:  "SECRET-KEY-123",
		BaseURL: "http://127.0.0.1:1",
		Timeout: time.Second,
	}, &http.Client{}, nil, nil, slog.New(slog.NewTextHandler(&logs, nil)))

	if found := m.Match(context.Background(), "hot water cures virus"); len(found) != 0 {
		t.Fatalf("expected no claims from an unreachable host, got %v", found)
	}
	if !strings.Contains(logs.String(), "claims search failed") {
		t.Fatalf("expected a warning, got %q", logs.String())
	}
	if strings.Contains(logs.String(), "SECRET-KEY-123") {
		t.Errorf("log exposes the API key: %s", logs.String())
	}
}

func TestNewMatcher_CapsMaxClaims(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, falseClaimJSON)
	}))
	defer server.Close()

	m := NewMatcher(model.ClaimsConfig{APIKey: "k", BaseURL: server.URL, MaxClaims: 10}, &http.Client{}, nil, nil, nil)
	if found := m.Match(context.Background(), "hot water cures virus"); len(found) != 3 {
		t.Errorf("expected at most 3 claims, got %d", len(found))
	}
}
