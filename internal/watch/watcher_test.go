package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opcreach/internal/netstat"
)

// fakeTable returns a scripted sequence of tables, one per poll, repeating
// the last one when polls outnumber scripts. Safe for concurrent reads.
type fakeTable struct {
	mu      sync.Mutex
	scripts [][]netstat.Entry
	errs    []error
	calls   int
}

func (f *fakeTable) Table(ctx context.Context) ([]netstat.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if len(f.scripts) == 0 {
		return nil, nil
	}
	if i >= len(f.scripts) {
		i = len(f.scripts) - 1
	}
	return f.scripts[i], nil
}

func (f *fakeTable) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// blockingTable never returns until released; used to prove cancellation
// does not wait for an in-flight snapshot.
type blockingTable struct {
	release chan struct{}
}

func (b *blockingTable) Table(ctx context.Context) ([]netstat.Entry, error) {
	<-b.release
	return nil, nil
}

func inbound(remote string) netstat.Entry {
	return netstat.Entry{
		Protocol:   "TCP",
		LocalAddr:  "10.0.0.9",
		LocalPort:  "50212",
		RemoteAddr: remote,
		RemotePort: "4840",
		State:      "ESTABLISHED",
		PID:        "4312",
	}
}

func TestWatchExactAddressMatch(t *testing.T) {
	src := &fakeTable{scripts: [][]netstat.Entry{
		{inbound("10.0.0.50"), inbound("10.0.0.5")},
	}}
	w := &Watcher{Source: src}

	attempts, err := w.Watch(context.Background(), Config{
		Target:       "10.0.0.5",
		Window:       time.Millisecond,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)

	// 10.0.0.50 shares a prefix with the target and must not match.
	require.Len(t, attempts, 1)
	assert.Equal(t, "10.0.0.5", attempts[0].RemoteAddr)
}

func TestWatchPollCountAndOrder(t *testing.T) {
	src := &fakeTable{scripts: [][]netstat.Entry{
		{inbound("10.0.0.5")},
		{},
		{inbound("10.0.0.5"), inbound("10.0.0.5")},
	}}
	w := &Watcher{Source: src}

	attempts, err := w.Watch(context.Background(), Config{
		Target:       "10.0.0.5",
		Window:       6 * time.Millisecond,
		PollInterval: 2 * time.Millisecond,
	})
	require.NoError(t, err)

	// ceil(6/2) = 3 polls; duplicates from the third poll are retained.
	assert.Equal(t, 3, src.callCount())
	require.Len(t, attempts, 3)
	assert.False(t, attempts[1].ObservedAt.Before(attempts[0].ObservedAt))
	assert.False(t, attempts[2].ObservedAt.Before(attempts[1].ObservedAt))
}

func TestWatchWindowNotMultipleOfInterval(t *testing.T) {
	src := &fakeTable{}
	w := &Watcher{Source: src}

	_, err := w.Watch(context.Background(), Config{
		Target:       "10.0.0.5",
		Window:       5 * time.Millisecond,
		PollInterval: 2 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, src.callCount())
}

func TestWatchResolvesWithNoMatches(t *testing.T) {
	src := &fakeTable{scripts: [][]netstat.Entry{{inbound("192.168.1.1")}}}
	w := &Watcher{Source: src}

	attempts, err := w.Watch(context.Background(), Config{
		Target:       "10.0.0.5",
		Window:       4 * time.Millisecond,
		PollInterval: 2 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.NotNil(t, attempts)
	assert.Empty(t, attempts)
}

func TestWatchDegradedPollWarnsAndContinues(t *testing.T) {
	src := &fakeTable{
		scripts: [][]netstat.Entry{{inbound("10.0.0.5")}, {inbound("10.0.0.5")}},
		errs:    []error{errors.New("netstat exploded"), nil},
	}
	var warnings []string
	w := &Watcher{
		Source: src,
		Warnf: func(format string, args ...any) {
			warnings = append(warnings, fmt.Sprintf(format, args...))
		},
	}

	attempts, err := w.Watch(context.Background(), Config{
		Target:       "10.0.0.5",
		Window:       4 * time.Millisecond,
		PollInterval: 2 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "poll 1/2")
	assert.Len(t, attempts, 1)
}

func TestWatchProgressIsProportional(t *testing.T) {
	src := &fakeTable{}
	var reported []int
	w := &Watcher{
		Source:   src,
		Progress: func(p int) { reported = append(reported, p) },
	}

	_, err := w.Watch(context.Background(), Config{
		Target:       "10.0.0.5",
		Window:       8 * time.Millisecond,
		PollInterval: 2 * time.Millisecond,
		StartPercent: 75,
		EndPercent:   99,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{81, 87, 93, 99}, reported)
}

func TestWatchCancelDoesNotAwaitInflightSnapshot(t *testing.T) {
	blocked := &blockingTable{release: make(chan struct{})}
	defer close(blocked.release)
	w := &Watcher{Source: blocked}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var err error
	go func() {
		_, err = w.Watch(ctx, Config{
			Target:       "10.0.0.5",
			Window:       time.Minute,
			PollInterval: time.Second,
		})
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not return promptly after cancel")
	}
}

func TestWatchRejectsNonPositiveInterval(t *testing.T) {
	w := &Watcher{Source: &fakeTable{}}
	_, err := w.Watch(context.Background(), Config{Target: "10.0.0.5", Window: time.Second})
	require.Error(t, err)
}
