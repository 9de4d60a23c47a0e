package opc

import (
	"context"
	"sync"
	"time"

	"opcreach/pkg/model"
)

// Fake is a deterministic Client for exercising the probe pipeline
// without a live server.
type Fake struct {
	mu sync.Mutex

	Endpoints   []model.EndpointDescriptor
	DiscoverErr error
	Outcome     model.SubscriptionOutcome

	// SubscribeDelay simulates the settle hold; Subscribe still honors
	// cancellation while waiting.
	SubscribeDelay time.Duration

	DiscoverCalls  int
	SubscribeCalls int
	CloseCalls     int

	// LastNodeID and LastInterval record what Subscribe was asked for.
	LastNodeID   string
	LastInterval time.Duration
}

var _ Client = (*Fake)(nil)

func (f *Fake) Discover(ctx context.Context, endpointURL string) ([]model.EndpointDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DiscoverCalls++
	if f.DiscoverErr != nil {
		return nil, f.DiscoverErr
	}
	return f.Endpoints, nil
}

func (f *Fake) Subscribe(ctx context.Context, endpointURL, nodeID string, publishingInterval time.Duration) model.SubscriptionOutcome {
	f.mu.Lock()
	f.SubscribeCalls++
	f.LastNodeID = nodeID
	f.LastInterval = publishingInterval
	delay := f.SubscribeDelay
	outcome := f.Outcome
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.SubscriptionOutcome{OK: false, Error: ctx.Err().Error()}
		}
	}
	return outcome
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CloseCalls++
	return nil
}
