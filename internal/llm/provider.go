package llm

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds everything needed to build a Provider
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string        // OpenAI only
	MaxTokens int           // 0 means the provider default
	Timeout   time.Duration // time allowed for response headers; 0 means defaultHeaderTimeout
	Debug     bool
}

// String renders the config for diagnostics with the API key masked
func (c Config) String() string {
	return fmt.Sprintf("provider=%s model=%s api_key=%s base_url=%s max_tokens=%d",
		c.Provider, c.Model, Redact(c.APIKey), c.BaseURL, c.MaxTokens)
}

// Redact masks a secret, keeping only enough of it to tell keys apart
func Redact(secret string) string {
	switch {
	case secret == "":
		return "<unset>"
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:3] + "..." + secret[len(secret)-4:]
	}
}

// Provider is a single LLM HTTP API
type Provider interface {
	// Name returns the provider identifier ("openai" or "anthropic")
	Name() string

	// Model returns the model identifier sent with each request
	Model() string

	// ChatStream sends one streaming chat request. A non-nil error means no
	// fragment was produced. The returned Stream must be drained or closed.
	// An empty model or user message is an invalid request for every
	// provider; the system message may be empty.
	ChatStream(ctx context.Context, systemMessage, userMessage string) (*Stream, error)
}

// NewProvider selects the client matching cfg.Provider. It performs no network I/O.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg)
	default:
		return nil, configError("", "unknown provider: %q (supported: %s, %s)", cfg.Provider, ProviderOpenAI, ProviderAnthropic)
	}
}

func validateBaseURL(provider, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return configError(provider, "invalid base URL %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return configError(provider, "invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return configError(provider, "invalid base URL %q: missing host", raw)
	}
	return nil
}
