package pane

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCapture_OutsideTmux(t *testing.T) {
	called := false
	c := &Capturer{
		getenv: func(string) string { return "" },
		run: func(context.Context, string, ...string) (string, error) {
			called = true
			return "", nil
		},
	}

	text, err := c.Capture(context.Background())
	if err != nil || text != "" {
		t.Errorf("Capture() = %q, %v", text, err)
	}
	if called {
		t.Error("tmux should not run outside a tmux session")
	}
}

func TestCapture_InsideTmux(t *testing.T) {
	var gotArgs []string
	c := &Capturer{
		getenv: func(k string) string {
			if k == "TMUX" {
				return "/tmp/tmux-1000/default,123,0"
			}
			return ""
		},
		run: func(_ context.Context, name string, args ...string) (string, error) {
			gotArgs = append([]string{name}, args...)
			return "$ make\nerror: no rule\n$ ask why\n\n", nil
		},
	}

	text, err := c.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if text != "$ make\nerror: no rule" {
		t.Errorf("text = %q", text)
	}
	if strings.Join(gotArgs, " ") != "tmux capture-pane -p" {
		t.Errorf("ran %q", gotArgs)
	}
}

func TestCapture_Failure(t *testing.T) {
	c := &Capturer{
		getenv: func(string) string { return "set" },
		run: func(context.Context, string, ...string) (string, error) {
			return "", errors.New("no server running")
		},
	}

	text, err := c.Capture(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if text != "" {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(err.Error(), "no server running") {
		t.Errorf("error = %v", err)
	}
}

func TestPromptless(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"prompt line dropped", "$ make\nerror: foo\n$ ask why did make fail\n\n\n", "$ make\nerror: foo"},
		{"trailing spaces", "ls\nfile.txt\n$ ask   \n  \n", "ls\nfile.txt"},
		{"only the prompt", "$ ask hello\n\n", ""},
		{"empty pane", "\n\n", ""},
		{"blank lines kept above", "a\n\nb\n$ ask", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := promptless(tt.in); got != tt.want {
				t.Errorf("promptless(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
