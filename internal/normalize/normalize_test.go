package normalize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/model"
)

func newTestFetcher(retries int, robots bool) *Fetcher {
	return NewFetcher(&http.Client{Timeout: 5 * time.Second}, model.ScrapeConfig{
		MaxBodyBytes:  1 << 20,
		Retries:       retries,
		RespectRobots: robots,
	}, nil)
}

func TestFetch_BrowserHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	if _, err := newTestFetcher(0, false).Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(got.Get("User-Agent"), "Chrome/120") {
		t.Errorf("expected browser user agent, got %q", got.Get("User-Agent"))
	}
	if got.Get("Accept-Language") != "en-US,en;q=0.9" {
		t.Errorf("unexpected Accept-Language %q", got.Get("Accept-Language"))
	}
	if got.Get("Cache-Control") != "no-cache" || got.Get("Pragma") != "no-cache" {
		t.Errorf("expected no-cache headers, got %q / %q", got.Get("Cache-Control"), got.Get("Pragma"))
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	origSleep := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	defer func() { fetchSleepFunc = origSleep }()

	result, err := newTestFetcher(2, false).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if string(result.Body) != "<html>OK</html>" {
		t.Errorf("unexpected body %q", result.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_NotFoundIsPermanent(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestFetcher(3, false).FetchWithRetry(context.Background(), server.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", attempts.Load())
	}
}

func TestFetch_RobotsDisallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		_, _ = fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	f := newTestFetcher(2, true)
	if _, err := f.FetchWithRetry(context.Background(), server.URL+"/private/page"); !errors.Is(err, ErrRobotsDisallowed) {
		t.Errorf("expected ErrRobotsDisallowed, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), server.URL+"/public"); err != nil {
		t.Errorf("expected public page to be fetched, got %v", err)
	}
}

func TestNormalize_PlainText(t *testing.T) {
	n := New(newTestFetcher(0, false), nil, nil)

	// "e" + combining acute composes to a single rune under NFC
	res := n.Normalize(context.Background(), "  cafe\u0301 prices doubled  ", model.TypeText)
	if res.EffectiveContent != "caf\u00e9 prices doubled" {
		t.Errorf("unexpected content %q", res.EffectiveContent)
	}
	if res.SourceURL != "" || res.IsScrapedURL || res.ScrapeFailed {
		t.Errorf("text input should not be treated as a link: %+v", res)
	}
}

func TestNormalize_ScrapesMetadata(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, `<html><head>
			<title>Fallback title</title>
			<meta property="og:description" content="Government confirms new policy on fuel prices">
		</head><body></body></html>`)
	}))
	defer server.Close()

	c := cache.NewMemoryCache(time.Minute, time.Minute)
	n := New(newTestFetcher(0, false), c, nil)

	for i := 0; i < 2; i++ {
		res := n.Normalize(context.Background(), server.URL+"/story", model.TypeText)
		want := ScrapedPrefix + "Government confirms new policy on fuel prices"
		if res.EffectiveContent != want {
			t.Errorf("run %d: got %q, want %q", i, res.EffectiveContent, want)
		}
		if !res.IsScrapedURL || res.ScrapeFailed || res.SourceURL != server.URL+"/story" {
			t.Errorf("run %d: unexpected flags %+v", i, res)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected second scrape to be served from cache, got %d fetches", hits.Load())
	}
}

func TestNormalize_TitleFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `<html><head><title>Minister resigns</title></head><body><p>text</p></body></html>`)
	}))
	defer server.Close()

	res := New(newTestFetcher(0, false), nil, nil).Normalize(context.Background(), server.URL, model.TypeURL)
	if res.EffectiveContent != ScrapedPrefix+"Minister resigns" {
		t.Errorf("unexpected content %q", res.EffectiveContent)
	}
}

func TestNormalize_FailureKeepsURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	link := server.URL + "/blocked"
	res := New(newTestFetcher(0, false), nil, nil).Normalize(context.Background(), link, model.TypeURL)
	if res.EffectiveContent != link || !res.ScrapeFailed || res.IsScrapedURL {
		t.Errorf("expected original url with failure flag, got %+v", res)
	}
	if res.SourceURL != link {
		t.Errorf("expected source url to be kept, got %q", res.SourceURL)
	}
}

func TestNormalize_DeclaredURLWithoutScheme(t *testing.T) {
	res := New(newTestFetcher(0, false), nil, nil).Normalize(context.Background(), "not a link", model.TypeURL)
	if !res.ScrapeFailed || res.EffectiveContent != "not a link" {
		t.Errorf("expected unparsable url to fail softly, got %+v", res)
	}
}
