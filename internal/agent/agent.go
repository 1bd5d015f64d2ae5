package agent

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/iishyfishyy/ask-sh/internal/extract"
	"github.com/iishyfishyy/ask-sh/internal/llm"
	"github.com/iishyfishyy/ask-sh/internal/prompt"
)

// Agent answers a single terminal request
type Agent interface {
	// Ask sends the request to the model, streams the reply to the agent's
	// writer and returns the full reply with the commands found in it
	Ask(ctx context.Context, req Request) (*Response, error)
}

// PaneSource supplies the visible terminal text
type PaneSource interface {
	Capture(ctx context.Context) (string, error)
}

// Request is one user request
type Request struct {
	Input   string
	UsePane bool
}

// Response is the outcome of one request
type Response struct {
	Text     string
	Commands []string
	// Errors holds the failed fragments; the reply may still be usable
	Errors   []error
	PaneUsed bool
}

// LLMAgent implements Agent on top of an llm.Provider
type LLMAgent struct {
	provider  llm.Provider
	templates prompt.Templates
	vars      prompt.Vars
	pane      PaneSource
	out       io.Writer
	log       io.Writer
	debug     bool
}

// NewLLMAgent creates an agent. vars carries the user's OS, arch and shell;
// pane may be nil. The reply is streamed to out as it arrives.
func NewLLMAgent(provider llm.Provider, templates prompt.Templates, vars prompt.Vars, pane PaneSource, out io.Writer) *LLMAgent {
	if out == nil {
		out = io.Discard
	}
	return &LLMAgent{
		provider:  provider,
		templates: templates,
		vars:      vars,
		pane:      pane,
		out:       out,
		log:       os.Stderr,
	}
}

// SetLog sets where notes and debug lines go. The default is os.Stderr.
func (a *LLMAgent) SetLog(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	a.log = w
}

// SetDebug enables or disables debug logging
func (a *LLMAgent) SetDebug(debug bool) {
	a.debug = debug
}

// Ask implements Agent
func (a *LLMAgent) Ask(ctx context.Context, req Request) (*Response, error) {
	vars := a.vars
	vars.UserInput = req.Input

	if req.UsePane && a.pane != nil {
		text, err := a.pane.Capture(ctx)
		if err != nil {
			fmt.Fprintf(a.log, "Could not read terminal pane, continuing without it: %v\n", err)
		}
		vars.PaneText = text
	}

	system, user := a.templates.Render(vars)
	if a.debug {
		fmt.Fprintf(a.log, "[DEBUG] Agent: provider=%s model=%s pane=%d bytes\n",
			a.provider.Name(), a.provider.Model(), len(vars.PaneText))
	}

	stream, err := a.provider.ChatStream(ctx, system, user)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	resp := &Response{PaneUsed: vars.PaneText != ""}
	resp.Text = llm.Collect(stream,
		func(text string) {
			io.WriteString(a.out, text)
		},
		func(err error) {
			resp.Errors = append(resp.Errors, err)
			fmt.Fprintf(a.out, "\nerror: %v\n", err)
		},
	)
	fmt.Fprintln(a.out)

	resp.Commands = extract.Commands(resp.Text)
	if a.debug {
		fmt.Fprintf(a.log, "[DEBUG] Agent: reply %d bytes, %d commands, %d errors\n",
			len(resp.Text), len(resp.Commands), len(resp.Errors))
	}

	return resp, nil
}
