package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient streams from an OpenAI-compatible chat-completions endpoint
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	debug      bool
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiReq struct {
	Model     string          `json:"model"`
	Messages  []openaiMessage `json:"messages"`
	Stream    bool            `json:"stream"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openaiChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIClient creates a client. cfg.BaseURL replaces the default API root.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, configError(ProviderOpenAI, "API key is required")
	}

	baseURL := defaultOpenAIBaseURL
	if cfg.BaseURL != "" {
		if err := validateBaseURL(ProviderOpenAI, cfg.BaseURL); err != nil {
			return nil, err
		}
		baseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		httpClient: newHTTPClient(cfg.Timeout),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		debug:      cfg.Debug,
	}, nil
}

func (c *OpenAIClient) Name() string {
	return ProviderOpenAI
}

func (c *OpenAIClient) Model() string {
	return c.model
}

// Endpoint returns the URL requests are sent to
func (c *OpenAIClient) Endpoint() string {
	return c.baseURL + "/chat/completions"
}

// ChatStream sends a system and a user message and streams the reply
func (c *OpenAIClient) ChatStream(ctx context.Context, systemMessage, userMessage string) (*Stream, error) {
	if c.apiKey == "" {
		return nil, configError(ProviderOpenAI, "API key is required")
	}
	if c.model == "" {
		return nil, invalidRequestError(ProviderOpenAI, "model is required", nil)
	}
	if userMessage == "" {
		return nil, invalidRequestError(ProviderOpenAI, "user message is required", nil)
	}

	body := openaiReq{
		Model: c.model,
		Messages: []openaiMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: userMessage},
		},
		Stream:    true,
		MaxTokens: c.maxTokens,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, invalidRequestError(ProviderOpenAI, "failed to encode request", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(b))
	if err != nil {
		cancel()
		return nil, invalidRequestError(ProviderOpenAI, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	if c.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] OpenAI: POST %s (model=%s)\n", c.Endpoint(), c.model)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, networkError(ProviderOpenAI, "request failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		return nil, readAPIError(ProviderOpenAI, resp)
	}

	if c.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] OpenAI: stream established (status=%d)\n", resp.StatusCode)
	}

	return newStream(ctx, cancel, ProviderOpenAI, resp.Body, c.decode), nil
}

// decode concatenates every choice's content delta in a chunk into one fragment
func (c *OpenAIClient) decode(body io.Reader, emit func(Fragment) bool) error {
	return readSSE(body, func(data string) bool {
		if isDone(data) {
			return false
		}
		text, err := parseOpenAIChunk(data)
		if err != nil {
			return emit(Fragment{Err: err})
		}
		return emit(Fragment{Text: text})
	})
}

func parseOpenAIChunk(data string) (string, error) {
	var chunk openaiChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", apiError(ProviderOpenAI, 0, "failed to decode stream chunk", err)
	}
	if chunk.Error != nil {
		return "", apiError(ProviderOpenAI, 0, chunk.Error.Message, nil)
	}

	var sb strings.Builder
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != nil {
			sb.WriteString(*choice.Delta.Content)
		}
	}
	return sb.String(), nil
}
