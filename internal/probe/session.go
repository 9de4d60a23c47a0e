package probe

import (
	"context"
	"errors"
	"sync"

	"opcreach/internal/config"
	"opcreach/pkg/model"
)

// Session owns the background unit one probe runs in. At most one run is
// active; starting a new one hard-kills the previous run at its next
// suspension point, with no cleanup guarantee. Abandoned sessions and
// sockets are short-lived diagnostic resources, not system state.
type Session struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	events chan model.Event
	done   chan struct{}
}

func NewSession() *Session {
	return &Session{
		events: make(chan model.Event, 256),
	}
}

// Events is the ordered outbound stream. It stays open across runs.
func (s *Session) Events() <-chan model.Event {
	return s.events
}

// Start launches a run. An active run is cancelled first, immediately and
// unconditionally; its remaining events are dropped.
func (s *Session) Start(cfg config.Probe, deps Deps) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	deps.Emit = func(ev model.Event) {
		// A killed run must not interleave trailing events with its
		// successor's stream, nor hang on a full channel.
		if ctx.Err() != nil {
			return
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
		}
	}

	if deps.Book != nil {
		deps.Book.OnHeadline(func(text string) {
			deps.Emit(model.LogLineEvent{Text: text})
		})
	}

	go func() {
		defer close(done)
		ctrl := New(cfg, deps)
		_, err := ctrl.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			deps.Emit(model.ErrorEvent{Message: err.Error()})
		}
		if deps.Book != nil {
			deps.Book.Close() //nolint:errcheck
		}
		deps.Emit(model.FinishedEvent{})
	}()
}

// Cancel terminates the active run if one exists; no-op otherwise.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Wait blocks until the current run's goroutine has exited. Mainly for
// tests and plain-text mode shutdown.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}
