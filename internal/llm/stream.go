package llm

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

// Fragment is one decoded unit of a streamed reply. Exactly one of Text or Err is set.
type Fragment struct {
	Text string
	Err  error
}

// Stream is a single-use, ordered sequence of fragments from one HTTP response.
// Fragments with an error do not end the stream; the channel closes when the
// response body is exhausted, the transport fails, or Close is called.
type Stream struct {
	fragments chan Fragment
	cancel    context.CancelFunc
	stop      chan struct{}
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// decodeFunc turns a response body into fragments. It returns the transport
// error that stopped it, if any. emit reports false once the consumer is gone.
type decodeFunc func(body io.Reader, emit func(Fragment) bool) error

func newStream(ctx context.Context, cancel context.CancelFunc, provider string, body io.ReadCloser, decode decodeFunc) *Stream {
	s := &Stream{
		fragments: make(chan Fragment),
		cancel:    cancel,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	emit := func(f Fragment) bool {
		if f.Err == nil && f.Text == "" {
			return true
		}
		select {
		case s.fragments <- f:
			return true
		case <-s.stop:
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.fragments)
		defer cancel()
		defer body.Close()

		err := decode(body, emit)
		if err != nil && !s.closed.Load() {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			emit(Fragment{Err: networkError(provider, "stream interrupted", err)})
		}
	}()

	return s
}

// Fragments returns the channel fragments are delivered on, in arrival order
func (s *Stream) Fragments() <-chan Fragment {
	return s.fragments
}

// Close abandons the stream and releases the underlying connection. It blocks
// until the decoder has stopped and may be called more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
		s.cancel()
	})
	<-s.done
	return nil
}

// Collect drains the stream and returns the concatenation of all text fragments.
// onText sees each text fragment as it arrives; onErr sees each failed fragment.
// Either callback may be nil.
func Collect(s *Stream, onText func(string), onErr func(error)) string {
	var full []byte
	for f := range s.Fragments() {
		if f.Err != nil {
			if onErr != nil {
				onErr(f.Err)
			}
			continue
		}
		full = append(full, f.Text...)
		if onText != nil {
			onText(f.Text)
		}
	}
	return string(full)
}
