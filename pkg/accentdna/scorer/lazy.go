package scorer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna/audio"
)

// InitFunc builds the real scorer. It runs until it succeeds or fails for a
// reason other than the caller's context.
type InitFunc func(ctx context.Context) (Scorer, error)

// Lazy defers backend initialization (health probe, cache open, model load)
// to the first Score call and then reuses the result for the rest of the
// process. A failed initialization is remembered and returned on every call,
// unless it failed because the caller's context was cancelled or timed out.
type Lazy struct {
	init InitFunc

	mu     sync.Mutex
	done   bool
	scorer Scorer
	err    error
}

func NewLazy(init InitFunc) *Lazy {
	return &Lazy{init: init}
}

// Get initializes the backend if needed and returns it.
func (l *Lazy) Get(ctx context.Context) (Scorer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return l.scorer, l.err
	}

	s, err := l.init(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		if ctx.Err() != nil {
			// the next caller retries
			return nil, err
		}
		l.err = err
	} else {
		l.scorer = s
	}
	l.done = true
	return l.scorer, l.err
}

func (l *Lazy) Score(ctx context.Context, reference, input audio.Waveform) (float64, error) {
	s, err := l.Get(ctx)
	if err != nil {
		return 0, err
	}
	return s.Score(ctx, reference, input)
}

// Close releases the backend if it was initialized and holds resources.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// a Score after Close must not initialize the backend
	if !l.done {
		l.done = true
		l.err = fmt.Errorf("%w: closed", ErrUnavailable)
	}
	if c, ok := l.scorer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
