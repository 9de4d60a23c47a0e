// Package watch runs the bounded polling loop that looks for inbound
// connections from the probed server after a subscription is in place.
package watch

import (
	"context"
	"fmt"
	"time"

	"opcreach/internal/netstat"
	"opcreach/pkg/model"
)

// TableReader is the slice of netstat.Source the watcher needs.
type TableReader interface {
	Table(ctx context.Context) ([]netstat.Entry, error)
}

// Config bounds one monitoring session.
type Config struct {
	// Target is the bare remote address to match. Matching is exact:
	// 10.0.0.5 must not match 10.0.0.50.
	Target       string
	Window       time.Duration
	PollInterval time.Duration
	// StartPercent/EndPercent frame the proportional progress reported
	// after each poll.
	StartPercent int
	EndPercent   int
}

// Watcher polls the connection table and accumulates matches. Duplicates
// across polls are retained: the same connection seen on successive polls
// is evidence of persistence, not noise.
type Watcher struct {
	Source   TableReader
	Now      func() time.Time
	Progress func(percent int)
	Warnf    func(format string, args ...any)
}

// Watch runs ceil(Window/PollInterval) polls, strictly serialized, and
// returns the accumulated attempts once all polls have run. A failed poll
// degrades to a warning; cancellation returns immediately with whatever
// was collected so far and the context's error, without waiting for an
// in-flight snapshot.
func (w *Watcher) Watch(ctx context.Context, cfg Config) ([]model.ConnectionAttempt, error) {
	if cfg.PollInterval <= 0 || cfg.Window <= 0 {
		return nil, &model.MonitorError{Err: fmt.Errorf("window %v / poll interval %v must be positive", cfg.Window, cfg.PollInterval)}
	}

	polls := int((cfg.Window + cfg.PollInterval - 1) / cfg.PollInterval)
	attempts := []model.ConnectionAttempt{}

	for i := 0; i < polls; i++ {
		entries, err := w.snapshot(ctx)
		if ctx.Err() != nil {
			return attempts, ctx.Err()
		}
		if err != nil {
			w.warnf("poll %d/%d failed: %v", i+1, polls, err)
		} else {
			at := w.clock()
			for _, e := range entries {
				if e.RemoteAddr != cfg.Target {
					continue
				}
				attempts = append(attempts, model.ConnectionAttempt{
					ObservedAt: at,
					Protocol:   e.Protocol,
					LocalAddr:  e.LocalAddr,
					LocalPort:  e.LocalPort,
					RemoteAddr: e.RemoteAddr,
					RemotePort: e.RemotePort,
					State:      e.State,
					PID:        e.PID,
				})
			}
		}

		if w.Progress != nil {
			w.Progress(cfg.StartPercent + (cfg.EndPercent-cfg.StartPercent)*(i+1)/polls)
		}

		if i < polls-1 {
			select {
			case <-ctx.Done():
				return attempts, ctx.Err()
			case <-time.After(cfg.PollInterval):
			}
		}
	}
	return attempts, nil
}

// snapshot runs one table read but abandons it on cancellation rather
// than waiting for the command to finish.
func (w *Watcher) snapshot(ctx context.Context) ([]netstat.Entry, error) {
	type result struct {
		entries []netstat.Entry
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		entries, err := w.Source.Table(ctx)
		ch <- result{entries, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.entries, r.err
	}
}

func (w *Watcher) clock() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Watcher) warnf(format string, args ...any) {
	if w.Warnf != nil {
		w.Warnf(format, args...)
	}
}
