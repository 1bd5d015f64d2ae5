package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestAnthropicClient(t *testing.T, endpoint string) *AnthropicClient {
	t.Helper()
	client, err := NewAnthropicClient(Config{Provider: ProviderAnthropic, Model: "claude-3-opus-20240229", APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewAnthropicClient: %v", err)
	}
	client.endpoint = endpoint
	return client
}

func TestAnthropicProviderCreation(t *testing.T) {
	client, err := NewAnthropicClient(Config{Provider: "anthropic", Model: "claude-3-opus-20240229", APIKey: "test-key"})
	if err != nil {
		t.Fatal(err)
	}
	if client.Name() != "anthropic" {
		t.Errorf("Name() = %q", client.Name())
	}
	if client.Model() != "claude-3-opus-20240229" {
		t.Errorf("Model() = %q", client.Model())
	}
	if client.maxTokens != 4096 {
		t.Errorf("maxTokens = %d, want 4096", client.maxTokens)
	}
}

func TestAnthropicClient_ChatStream(t *testing.T) {
	server := sseServer(t, func(r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("anthropic-version = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("anthropic requests must not carry a bearer token")
		}

		var req anthropicReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.System != "be brief" {
			t.Errorf("system = %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "list files" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if !req.Stream || req.MaxTokens != 4096 {
			t.Errorf("stream=%v max_tokens=%d", req.Stream, req.MaxTokens)
		}
	},
		"event: message_start\n",
		`data: {"type":"message_start","message":{"id":"msg_1"}}`+"\n\n",
		": keep-alive\n\n",
		"event: content_block_start\n",
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`+"\n\n",
		`data: {"type":"ping"}`+"\n\n",
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hi"}}`+"\n\n",
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":""}}`+"\n\n",
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}`+"\n\n",
		`data: {"type":"content_block_stop","index":0}`+"\n\n",
		`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"}}`+"\n\n",
		`data: {"type":"message_stop"}`+"\n\n",
		"data: [DONE]\n\n",
	)

	stream, err := newTestAnthropicClient(t, server.URL).ChatStream(context.Background(), "be brief", "list files")
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	defer stream.Close()

	var fragments []string
	for f := range stream.Fragments() {
		if f.Err != nil {
			t.Fatalf("unexpected error fragment: %v", f.Err)
		}
		fragments = append(fragments, f.Text)
	}
	if len(fragments) != 2 || fragments[0] != "hi" || fragments[1] != " there" {
		t.Errorf("fragments = %q", fragments)
	}
}

func TestAnthropicClient_SplitFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		frame := `data: {"type":"content_block_delta","delta":{"text":"reassembled"}}` + "\n\n"
		half := len(frame) / 2
		fmt.Fprint(w, frame[:half])
		flusher.Flush()
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, frame[half:])
		flusher.Flush()
	}))
	defer server.Close()

	stream, err := newTestAnthropicClient(t, server.URL).ChatStream(context.Background(), "sys", "user")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	if got := Collect(stream, nil, nil); got != "reassembled" {
		t.Errorf("text = %q, want %q", got, "reassembled")
	}
}

func TestAnthropicClient_ErrorStatus(t *testing.T) {
	body := `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(body))
	}))
	defer server.Close()

	stream, err := newTestAnthropicClient(t, server.URL).ChatStream(context.Background(), "sys", "user")
	if err == nil {
		stream.Close()
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrAPI) {
		t.Errorf("expected API error, got %v", err)
	}
	if !strings.Contains(err.Error(), body) {
		t.Errorf("error %q should contain the full response body", err)
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && !apiErr.IsAuthError() {
		t.Error("401 should be reported as an auth error")
	}
}

func TestAnthropicClient_StreamErrorEvent(t *testing.T) {
	server := sseServer(t, nil,
		`data: {"type":"content_block_delta","delta":{"text":"partial"}}`+"\n\n",
		"event: error\n",
		`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`+"\n\n",
	)

	stream, err := newTestAnthropicClient(t, server.URL).ChatStream(context.Background(), "sys", "user")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	var errs []error
	text := Collect(stream, nil, func(err error) { errs = append(errs, err) })
	if text != "partial" {
		t.Errorf("text = %q", text)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrAPI) || !strings.Contains(errs[0].Error(), "Overloaded") {
		t.Errorf("unexpected error fragments: %v", errs)
	}
}

func TestAnthropicClient_EmptyUserMessage(t *testing.T) {
	client := newTestAnthropicClient(t, "http://127.0.0.1:1")
	if _, err := client.ChatStream(context.Background(), "sys", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected invalid request error, got %v", err)
	}
}

func TestParseAnthropicEvent(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantOK  bool
		wantErr bool
	}{
		{"content delta", `{"type":"content_block_delta","delta":{"text":"hi"}}`, "hi", true, false},
		{"message stop", `{"type":"message_stop"}`, "", true, false},
		{"message start", `{"type":"message_start","message":{}}`, "", true, false},
		{"ping", `{"type":"ping"}`, "", true, false},
		{"delta without text", `{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{"}}`, "", true, false},
		{"error", `{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`, "", true, true},
		{"truncated json", `{"type":"content_block_delta","delta":{"te`, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := parseAnthropicEvent(tt.data)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if (f.Err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", f.Err, tt.wantErr)
			}
			if f.Text != tt.want {
				t.Errorf("text = %q, want %q", f.Text, tt.want)
			}
		})
	}
}

func TestAnthropicDecode_Lines(t *testing.T) {
	client := &AnthropicClient{}
	body := strings.Join([]string{
		`data: {"type":"content_block_delta","delta":{"text":"hi"}}`,
		`data: [DONE]`,
		`data: {"type":"content_block_delta","delta":{"text":"after done"}}`,
	}, "\n")

	var got []Fragment
	err := client.decode(strings.NewReader(body), func(f Fragment) bool {
		got = append(got, f)
		return true
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var texts []string
	for _, f := range got {
		if f.Err != nil {
			t.Errorf("[DONE] must not produce an error: %v", f.Err)
		}
		if f.Text != "" {
			texts = append(texts, f.Text)
		}
	}
	if len(texts) != 1 || texts[0] != "hi" {
		t.Errorf("texts = %q, want [\"hi\"]", texts)
	}
}
