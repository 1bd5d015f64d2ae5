// Package pane reads the visible text of the user's terminal pane.
package pane

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode"
)

// runFunc runs a command and returns its stdout
type runFunc func(ctx context.Context, name string, args ...string) (string, error)

// Capturer reads the current tmux pane
type Capturer struct {
	getenv func(string) string
	run    runFunc
	debug  bool
}

// NewCapturer creates a Capturer that uses the process environment and tmux
func NewCapturer() *Capturer {
	return &Capturer{getenv: os.Getenv, run: runCommand}
}

// SetDebug enables or disables debug logging
func (c *Capturer) SetDebug(debug bool) {
	c.debug = debug
}

// Available reports whether the process runs inside tmux
func (c *Capturer) Available() bool {
	return c.getenv("TMUX") != ""
}

// Capture returns the pane text. Outside tmux it returns "" and no error.
func (c *Capturer) Capture(ctx context.Context) (string, error) {
	if !c.Available() {
		if c.debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Pane: not inside tmux, skipping capture\n")
		}
		return "", nil
	}

	out, err := c.run(ctx, "tmux", "capture-pane", "-p")
	if err != nil {
		return "", fmt.Errorf("failed to capture tmux pane: %w", err)
	}

	text := promptless(out)
	if c.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Pane: captured %d bytes\n", len(text))
	}
	return text, nil
}

// promptless drops trailing blank lines and then the last line, which holds
// the shell prompt the user is typing the request on
func promptless(out string) string {
	text := strings.TrimRightFunc(out, unicode.IsSpace)
	i := strings.LastIndex(text, "\n")
	if i < 0 {
		return ""
	}
	return text[:i]
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
