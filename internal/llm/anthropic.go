package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

const (
	anthropicAPIURL           = "https://api.anthropic.com/v1/messages"
	anthropicVersion          = "2023-06-01"
	defaultAnthropicMaxTokens = 4096
)

// AnthropicClient streams from the Anthropic messages API
type AnthropicClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
	maxTokens  int
	debug      bool
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicReq struct {
	Model     string             `json:"model"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicClient creates a client. The endpoint is fixed; cfg.BaseURL is ignored.
func NewAnthropicClient(cfg Config) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, configError(ProviderAnthropic, "API key is required")
	}
	if cfg.BaseURL != "" && cfg.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Anthropic: ignoring base URL %s\n", cfg.BaseURL)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicClient{
		httpClient: newHTTPClient(cfg.Timeout),
		endpoint:   anthropicAPIURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  maxTokens,
		debug:      cfg.Debug,
	}, nil
}

func (c *AnthropicClient) Name() string {
	return ProviderAnthropic
}

func (c *AnthropicClient) Model() string {
	return c.model
}

// ChatStream sends the system prompt and one user message and streams the reply
func (c *AnthropicClient) ChatStream(ctx context.Context, systemMessage, userMessage string) (*Stream, error) {
	if c.apiKey == "" {
		return nil, configError(ProviderAnthropic, "API key is required")
	}
	if c.model == "" {
		return nil, invalidRequestError(ProviderAnthropic, "model is required", nil)
	}
	if userMessage == "" {
		return nil, invalidRequestError(ProviderAnthropic, "user message is required", nil)
	}

	body := anthropicReq{
		Model:     c.model,
		System:    systemMessage,
		Messages:  []anthropicMessage{{Role: "user", Content: userMessage}},
		Stream:    true,
		MaxTokens: c.maxTokens,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, invalidRequestError(ProviderAnthropic, "failed to encode request", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		cancel()
		return nil, invalidRequestError(ProviderAnthropic, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	if c.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Anthropic: POST %s (model=%s, max_tokens=%d)\n", c.endpoint, c.model, c.maxTokens)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, networkError(ProviderAnthropic, "request failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		return nil, readAPIError(ProviderAnthropic, resp)
	}

	if c.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Anthropic: stream established (status=%d)\n", resp.StatusCode)
	}

	return newStream(ctx, cancel, ProviderAnthropic, resp.Body, c.decode), nil
}

func (c *AnthropicClient) decode(body io.Reader, emit func(Fragment) bool) error {
	return readSSE(body, func(data string) bool {
		if isDone(data) {
			return false
		}
		f, ok := parseAnthropicEvent(data)
		if !ok {
			if c.debug {
				fmt.Fprintf(os.Stderr, "[DEBUG] Anthropic: skipping undecodable line: %q\n", data)
			}
			return true
		}
		return emit(f)
	})
}

// parseAnthropicEvent maps one data payload to a fragment. ok is false when the
// payload is not valid JSON. Non-delta events map to an empty fragment.
func parseAnthropicEvent(data string) (f Fragment, ok bool) {
	var event anthropicEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Fragment{}, false
	}

	switch event.Type {
	case "content_block_delta":
		if event.Delta != nil {
			return Fragment{Text: event.Delta.Text}, true
		}
	case "error":
		msg := "stream error"
		if event.Error != nil {
			msg = event.Error.Type + ": " + event.Error.Message
		}
		return Fragment{Err: apiError(ProviderAnthropic, 0, msg, nil)}, true
	}
	return Fragment{}, true
}
