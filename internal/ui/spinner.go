package ui

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"
)

// Spinner is a simple terminal spinner shown while waiting for the first
// bytes of a reply.
type Spinner struct {
	out      io.Writer
	label    string
	frames   []string
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  bool
}

// NewSpinner creates a spinner with a label that draws on out
func NewSpinner(out io.Writer, label string) *Spinner {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	if runtime.GOOS == "windows" {
		frames = []string{"-", "\\", "|", "/"}
	}
	return &Spinner{
		out:      out,
		label:    label,
		frames:   frames,
		interval: 120 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins rendering the spinner until Stop is called
func (s *Spinner) Start() {
	s.started = true
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r%s %s", s.frames[i%len(s.frames)], s.label)
			select {
			case <-s.stopCh:
				// Clear the current line
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the spinner and clears the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.started {
			<-s.doneCh
		}
	})
}

// StopOnWrite wraps w so that the spinner stops right before the first write
func (s *Spinner) StopOnWrite(w io.Writer) io.Writer {
	return &stopWriter{w: w, stop: s.Stop}
}

type stopWriter struct {
	w    io.Writer
	stop func()
	once sync.Once
}

func (sw *stopWriter) Write(p []byte) (int, error) {
	sw.once.Do(sw.stop)
	return sw.w.Write(p)
}
