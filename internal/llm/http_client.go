package llm

import (
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHeaderTimeout = 60 * time.Second

// newHTTPClient builds a client for streaming requests. http.Client.Timeout would
// also cut off a long body, so the limit is applied to response headers only and
// the rest is left to the caller's context.
func newHTTPClient(headerTimeout time.Duration) *http.Client {
	if headerTimeout <= 0 {
		headerTimeout = defaultHeaderTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyFromEnvironment
	transport.ResponseHeaderTimeout = headerTimeout
	transport.MaxIdleConns = 2
	transport.IdleConnTimeout = 30 * time.Second
	return &http.Client{Transport: transport}
}

// readAPIError captures the full error body of a rejected request
func readAPIError(provider string, resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiError(provider, resp.StatusCode, resp.Status, err)
	}
	message := strings.TrimSpace(string(data))
	if message == "" {
		message = resp.Status
	}
	return apiError(provider, resp.StatusCode, message, nil)
}
