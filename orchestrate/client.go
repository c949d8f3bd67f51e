package orchestrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/wealthops/advisory-mesh/broker"
	"github.com/wealthops/advisory-mesh/messaging"
)

// ErrAgentUnavailable is returned when a query cannot reach its target
// agent at all, as opposed to the agent answering with an error.
var ErrAgentUnavailable = errors.New("agent unavailable")

// AgentClient sends one request envelope to one agent and waits for
// its result. An error status response surfaces as an error carrying
// the agent's own diagnostic.
type AgentClient interface {
	Query(ctx context.Context, to messaging.Agent, msg *messaging.Message) (map[string]any, error)
}

// BrokerClient is the production AgentClient: it publishes over the
// orchestrator's broker and correlates the response by the message's
// correlation id and the target agent.
type BrokerClient struct {
	broker *broker.Broker
}

// NewBrokerClient wraps an orchestrator-side broker. The broker's Run
// loop must be active for responses to arrive.
func NewBrokerClient(b *broker.Broker) *BrokerClient {
	return &BrokerClient{broker: b}
}

func (c *BrokerClient) Query(ctx context.Context, to messaging.Agent, msg *messaging.Message) (map[string]any, error) {
	// Register before publishing so the response cannot slip past the
	// waiter.
	ch := c.broker.AwaitChan(msg.CorrelationID, to)
	defer c.broker.CancelAwait(msg.CorrelationID, to)

	if !c.broker.Publish(ctx, msg) {
		return nil, fmt.Errorf("%w: publish to %s failed", ErrAgentUnavailable, to)
	}

	select {
	case resp := <-ch:
		if !resp.OK() {
			return nil, fmt.Errorf("agent %s: %s", to, resp.Error)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("awaiting %s: %w", to, ctx.Err())
	}
}

// QueryFunc answers one request directly.
type QueryFunc func(ctx context.Context, msg *messaging.Message) (map[string]any, error)

// LocalClient is an in-process AgentClient that invokes registered
// functions instead of crossing a transport. Used in tests and
// single-binary deployments.
type LocalClient struct {
	handlers map[messaging.Agent]QueryFunc
}

// NewLocalClient creates an empty LocalClient.
func NewLocalClient() *LocalClient {
	return &LocalClient{handlers: make(map[messaging.Agent]QueryFunc)}
}

// Register binds an agent identity to its handler. Last registration
// wins.
func (c *LocalClient) Register(agent messaging.Agent, fn QueryFunc) {
	c.handlers[agent] = fn
}

func (c *LocalClient) Query(ctx context.Context, to messaging.Agent, msg *messaging.Message) (map[string]any, error) {
	fn, exists := c.handlers[to]
	if !exists {
		return nil, fmt.Errorf("%w: no local handler for %s", ErrAgentUnavailable, to)
	}
	return fn(ctx, msg)
}
