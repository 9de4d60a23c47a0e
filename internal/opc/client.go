// Package opc wraps the OPC UA handshake behind a small capability
// surface: endpoint discovery, a one-shot subscribe round-trip, and a
// best-effort disconnect. The probe pipeline only ever talks to Client,
// never to the wire library directly.
package opc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"opcreach/pkg/model"
)

// Client is the capability surface the probe controller depends on.
type Client interface {
	// Discover asks the server for its endpoints. It fails with a
	// ConnectError when the transport cannot be established or the
	// server refuses discovery.
	Discover(ctx context.Context, endpointURL string) ([]model.EndpointDescriptor, error)

	// Subscribe connects, opens a session, creates a subscription with
	// one monitored item for nodeID, holds briefly so any callback
	// channel can materialize, then tears everything down best-effort.
	// It never fails past this boundary: the outcome carries success or
	// a short error description.
	Subscribe(ctx context.Context, endpointURL, nodeID string, publishingInterval time.Duration) model.SubscriptionOutcome

	// Close disconnects best-effort. Idempotent, safe after failure.
	Close() error
}

// settleDelay is how long Subscribe holds the live subscription so the
// server has a chance to open its callback connection.
const settleDelay = 2 * time.Second

// UAClient is the network-backed Client.
type UAClient struct {
	mu     sync.Mutex
	conn   *opcua.Client
	settle time.Duration
}

func NewUAClient() *UAClient {
	return &UAClient{settle: settleDelay}
}

func (c *UAClient) Discover(ctx context.Context, endpointURL string) ([]model.EndpointDescriptor, error) {
	eps, err := opcua.GetEndpoints(ctx, endpointURL)
	if err != nil {
		return nil, &model.ConnectError{Endpoint: endpointURL, Err: err}
	}

	out := make([]model.EndpointDescriptor, 0, len(eps))
	for _, ep := range eps {
		d := model.EndpointDescriptor{
			URL:            ep.EndpointURL,
			SecurityPolicy: ep.SecurityPolicyURI,
			SecurityMode:   ep.SecurityMode.String(),
		}
		for _, tok := range ep.UserIdentityTokens {
			d.UserTokenKinds = append(d.UserTokenKinds, tok.TokenType.String())
		}
		out = append(out, d)
	}
	return out, nil
}

func (c *UAClient) Subscribe(ctx context.Context, endpointURL, nodeID string, publishingInterval time.Duration) model.SubscriptionOutcome {
	id, err := ua.ParseNodeID(nodeID)
	if err != nil {
		return failed(fmt.Sprintf("invalid node id %q: %v", nodeID, err))
	}

	conn, err := opcua.NewClient(endpointURL,
		opcua.SecurityMode(ua.MessageSecurityModeNone),
		opcua.SecurityPolicy("None"),
		opcua.AuthAnonymous(),
	)
	if err != nil {
		return failed(fmt.Sprintf("client setup: %v", err))
	}
	if err := conn.Connect(ctx); err != nil {
		return failed(fmt.Sprintf("connect: %v", err))
	}
	c.retain(conn)
	// Teardown failures are swallowed; they are not the outcome.
	defer c.Close()

	notify := make(chan *opcua.PublishNotificationData, 16)
	sub, err := conn.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: publishingInterval,
	}, notify)
	if err != nil {
		return failed(fmt.Sprintf("create subscription: %v", err))
	}
	defer sub.Cancel(ctx) //nolint:errcheck

	req := opcua.NewMonitoredItemCreateRequestWithDefaults(id, ua.AttributeIDValue, 1)
	res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
	if err != nil {
		return failed(fmt.Sprintf("monitor %s: %v", nodeID, err))
	}
	if len(res.Results) > 0 && res.Results[0].StatusCode != ua.StatusOK {
		return failed(fmt.Sprintf("monitor %s: %s", nodeID, res.Results[0].StatusCode))
	}

	select {
	case <-time.After(c.settle):
	case <-ctx.Done():
		return failed(ctx.Err().Error())
	}

	return model.SubscriptionOutcome{OK: true, NodeID: nodeID}
}

func (c *UAClient) retain(conn *opcua.Client) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *UAClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return conn.Close(ctx)
}

func failed(desc string) model.SubscriptionOutcome {
	return model.SubscriptionOutcome{OK: false, Error: desc}
}
