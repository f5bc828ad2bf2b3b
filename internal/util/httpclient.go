package util

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ClientOptions configures an outbound HTTP client
type ClientOptions struct {
	Timeout      time.Duration
	HTTPProxy    string
	HTTPSProxy   string
	NoProxy      string
	MaxRedirects int // 0 keeps the net/http default
}

// NewHTTPClient builds a client whose transport propagates trace context
func NewHTTPClient(opts ClientOptions) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.Proxy = NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy)

	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: otelhttp.NewTransport(base),
	}

	if opts.MaxRedirects > 0 {
		limit := opts.MaxRedirects
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return http.ErrUseLastResponse
			}
			return nil
		}
	}

	return client
}
