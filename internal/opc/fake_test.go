package opc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opcreach/pkg/model"
)

func TestFakeRecordsSubscribeParameters(t *testing.T) {
	f := &Fake{Outcome: model.SubscriptionOutcome{OK: true, NodeID: "ns=0;i=2258"}}

	out := f.Subscribe(context.Background(), "opc.tcp://10.0.0.5:4840", "ns=0;i=2258", 250*time.Millisecond)

	assert.True(t, out.OK)
	assert.Equal(t, 1, f.SubscribeCalls)
	assert.Equal(t, "ns=0;i=2258", f.LastNodeID)
	assert.Equal(t, 250*time.Millisecond, f.LastInterval)
}

func TestFakeSubscribeHonorsCancellation(t *testing.T) {
	f := &Fake{
		Outcome:        model.SubscriptionOutcome{OK: true},
		SubscribeDelay: time.Minute,
	}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan model.SubscriptionOutcome, 1)
	go func() {
		done <- f.Subscribe(ctx, "opc.tcp://10.0.0.5:4840", "ns=0;i=2258", time.Millisecond)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case out := <-done:
		assert.False(t, out.OK)
		assert.Contains(t, out.Error, "context canceled")
	case <-time.After(time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
}

func TestFakeCloseIsIdempotent(t *testing.T) {
	f := &Fake{}
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.Equal(t, 2, f.CloseCalls)
}
