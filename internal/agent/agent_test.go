package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/iishyfishyy/ask-sh/internal/llm"
	"github.com/iishyfishyy/ask-sh/internal/prompt"
)

// TestAgentInterface ensures implementations satisfy the Agent interface
func TestAgentInterface(t *testing.T) {
	var _ Agent = (*LLMAgent)(nil)
	var _ Agent = (*MockAgent)(nil)
}

// MockAgent for testing code that depends on Agent interface
type MockAgent struct {
	AskFn func(context.Context, Request) (*Response, error)
}

func (m *MockAgent) Ask(ctx context.Context, req Request) (*Response, error) {
	if m.AskFn != nil {
		return m.AskFn(ctx, req)
	}
	return &Response{Text: "```echo mock```", Commands: []string{"echo mock"}}, nil
}

type fakePane struct {
	text string
	err  error
}

func (p fakePane) Capture(context.Context) (string, error) {
	return p.text, p.err
}

// openAIServer replies with one SSE frame per delta and records the user message
func openAIServer(t *testing.T, gotUser *string, deltas ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if gotUser != nil {
			*gotUser = string(body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			fmt.Fprintf(w, "data: %s\n\n", d)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)
	return server
}

func newProvider(t *testing.T, baseURL string) llm.Provider {
	t.Helper()
	p, err := llm.NewProvider(llm.Config{
		Provider: llm.ProviderOpenAI,
		Model:    "gpt-4o-mini",
		APIKey:   "sk-test",
		BaseURL:  baseURL,
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAsk_StreamsAndExtracts(t *testing.T) {
	server := openAIServer(t, nil,
		`{"choices":[{"delta":{"content":"Run:\n"}}]}`,
		`{"choices":[{"delta":{"content":"`+"```"+`bash\nls -la\n"}}]}`,
		`{"choices":[{"delta":{"content":"`+"```"+`"}}]}`,
	)

	var out bytes.Buffer
	a := NewLLMAgent(newProvider(t, server.URL), prompt.Default(), prompt.Vars{OS: "linux"}, nil, &out)

	resp, err := a.Ask(context.Background(), Request{Input: "list files"})
	if err != nil {
		t.Fatal(err)
	}

	wantText := "Run:\n```bash\nls -la\n```"
	if resp.Text != wantText {
		t.Errorf("Text = %q, want %q", resp.Text, wantText)
	}
	if !reflect.DeepEqual(resp.Commands, []string{"ls -la"}) {
		t.Errorf("Commands = %q", resp.Commands)
	}
	if out.String() != wantText+"\n" {
		t.Errorf("streamed output = %q", out.String())
	}
	if len(resp.Errors) != 0 {
		t.Errorf("unexpected errors: %v", resp.Errors)
	}
}

func TestAsk_ErrorFragmentsAreReported(t *testing.T) {
	server := openAIServer(t, nil,
		`{"choices":[{"delta":{"content":"partial "}}]}`,
		`{not json`,
		`{"choices":[{"delta":{"content":"reply"}}]}`,
	)

	var out bytes.Buffer
	a := NewLLMAgent(newProvider(t, server.URL), prompt.Default(), prompt.Vars{}, nil, &out)

	resp, err := a.Ask(context.Background(), Request{Input: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "partial reply" {
		t.Errorf("Text = %q", resp.Text)
	}
	if len(resp.Errors) != 1 || !errors.Is(resp.Errors[0], llm.ErrAPI) {
		t.Errorf("Errors = %v", resp.Errors)
	}
	if !strings.Contains(out.String(), "error: ") {
		t.Errorf("error not shown in output: %q", out.String())
	}
}

func TestAsk_UsesPane(t *testing.T) {
	var body string
	server := openAIServer(t, &body, `{"choices":[{"delta":{"content":"ok"}}]}`)

	a := NewLLMAgent(newProvider(t, server.URL), prompt.Default(), prompt.Vars{}, fakePane{text: "fatal: not a git repository"}, nil)

	resp, err := a.Ask(context.Background(), Request{Input: "help", UsePane: true})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.PaneUsed {
		t.Error("expected PaneUsed")
	}
	if !strings.Contains(body, "fatal: not a git repository") {
		t.Errorf("pane text missing from request: %s", body)
	}
}

func TestAsk_PaneFailureContinues(t *testing.T) {
	server := openAIServer(t, nil, `{"choices":[{"delta":{"content":"ok"}}]}`)

	a := NewLLMAgent(newProvider(t, server.URL), prompt.Default(), prompt.Vars{}, fakePane{err: errors.New("no tmux")}, nil)
	var log bytes.Buffer
	a.SetLog(&log)

	resp, err := a.Ask(context.Background(), Request{Input: "help", UsePane: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.PaneUsed {
		t.Error("pane should not be marked used after a failed capture")
	}
	if resp.Text != "ok" {
		t.Errorf("Text = %q", resp.Text)
	}
	if !strings.Contains(log.String(), "Could not read terminal pane") || !strings.Contains(log.String(), "no tmux") {
		t.Errorf("log = %q", log.String())
	}
}

func TestAsk_DebugLinesGoToLog(t *testing.T) {
	server := openAIServer(t, nil, `{"choices":[{"delta":{"content":"run `+"`ls`"+`"}}]}`)

	var out, log bytes.Buffer
	a := NewLLMAgent(newProvider(t, server.URL), prompt.Default(), prompt.Vars{}, nil, &out)
	a.SetDebug(true)
	a.SetLog(&log)

	if _, err := a.Ask(context.Background(), Request{Input: "list"}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "[DEBUG]") {
		t.Errorf("debug lines leaked into the reply: %q", out.String())
	}
	if strings.Count(log.String(), "[DEBUG] Agent:") != 2 {
		t.Errorf("log = %q", log.String())
	}
}

func TestAsk_PreStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	a := NewLLMAgent(newProvider(t, server.URL), prompt.Default(), prompt.Vars{}, nil, nil)

	_, err := a.Ask(context.Background(), Request{Input: "x"})
	if !errors.Is(err, llm.ErrAPI) {
		t.Fatalf("expected API error, got %v", err)
	}
	var apiErr *llm.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("error = %#v", err)
	}
}

// Example of how to use MockAgent in tests
func ExampleMockAgent() {
	mock := &MockAgent{
		AskFn: func(ctx context.Context, req Request) (*Response, error) {
			return &Response{Commands: []string{"ls -la"}}, nil
		},
	}

	resp, _ := mock.Ask(context.Background(), Request{Input: "list files"})
	fmt.Println(resp.Commands[0])
	// Output: ls -la
}
