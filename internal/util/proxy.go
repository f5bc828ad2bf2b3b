package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc creates a proxy function based on configuration.
// With no proxy URLs configured it defers to the environment.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func splitNoProxy(noProxy string) []string {
	var hosts []string
	for _, h := range strings.Split(noProxy, ",") {
		h = strings.TrimSpace(strings.ToLower(h))
		if h != "" {
			hosts = append(hosts, strings.TrimPrefix(h, "."))
		}
	}
	return hosts
}

func bypassed(host string, bypass []string) bool {
	host = strings.ToLower(host)
	for _, b := range bypass {
		if b == "*" || host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}
