package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ppiankov/veritas/internal/model"
)

// Limiter throttles outbound requests per host
type Limiter struct {
	hosts map[string]*rate.Limiter
	mu    sync.RWMutex
	rps   rate.Limit
	burst int
}

// NewLimiter creates a per-host limiter. A non-positive rate disables throttling.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	rps := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		rps = rate.Inf
	}

	return &Limiter{
		hosts: make(map[string]*rate.Limiter),
		rps:   rps,
		burst: burst,
	}
}

// NewLimiterFromConfig builds a limiter from the rate_limit config section,
// applying the per-host overrides
func NewLimiterFromConfig(cfg model.RateLimitConfig) *Limiter {
	l := NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
	for _, h := range cfg.Hosts {
		if strings.TrimSpace(h.Host) == "" {
			continue
		}
		l.SetHostRate(strings.TrimSpace(h.Host), h.RequestsPerSecond, h.Burst)
	}
	return l
}

// Wait blocks until the host of rawURL may be contacted. A nil limiter never blocks.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil {
		return nil
	}
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.forHost(host).Wait(ctx)
}

// SetHostRate overrides the rate for a single host. A non-positive rate
// lifts throttling for that host.
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.burst
	}
	rps := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		rps = rate.Inf
	}
	l.hosts[strings.ToLower(host)] = rate.NewLimiter(rps, burst)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.hosts[host]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.hosts[host]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.rps, l.burst)
	l.hosts[host] = lim
	return lim
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return strings.ToLower(parsed.Host), nil
}
