package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wealthops/advisory-mesh/config"
	"github.com/wealthops/advisory-mesh/messaging"
	"github.com/wealthops/advisory-mesh/observability"
	"github.com/wealthops/advisory-mesh/transport"
)

// ErrorPolicy decides how the broker settles a delivery whose handler
// failed. Exactly one of the two behaviors applies; the broker never
// both answers with an error and asks the transport to retry.
type ErrorPolicy string

const (
	// ErrorPolicyAnswerAndAck publishes an error response and
	// acknowledges the delivery. The caller learns about the failure;
	// the transport does not redeliver.
	ErrorPolicyAnswerAndAck ErrorPolicy = config.PolicyAnswerAndAck

	// ErrorPolicyAbandonForRetry publishes no response and abandons the
	// delivery so the transport redelivers it until the delivery budget
	// is exhausted.
	ErrorPolicyAbandonForRetry ErrorPolicy = config.PolicyAbandonForRetry
)

// Broker is one agent's endpoint on the mesh: it publishes envelopes,
// runs the receive loop that deduplicates and dispatches requests to
// registered handlers, and correlates incoming responses with waiters.
type Broker struct {
	agent  messaging.Agent
	tr     transport.Transport
	policy ErrorPolicy

	seen     *SeenCache
	handlers *registry

	waiters   map[string]chan *messaging.Response
	waitersMu sync.Mutex

	logger   *slog.Logger
	observer observability.Observer
	metrics  *Metrics

	running atomic.Bool
}

// New creates a Broker for the given agent identity on the given
// transport.
func New(agent messaging.Agent, tr transport.Transport, cfg config.BrokerConfig) (*Broker, error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	policy := ErrorPolicy(cfg.ErrorPolicy)
	switch policy {
	case ErrorPolicyAnswerAndAck, ErrorPolicyAbandonForRetry:
	default:
		return nil, fmt.Errorf("unknown error policy: %q", cfg.ErrorPolicy)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Broker{
		agent:    agent,
		tr:       tr,
		policy:   policy,
		seen:     NewSeenCache(cfg.SeenRetention()),
		handlers: newRegistry(),
		waiters:  make(map[string]chan *messaging.Response),
		logger:   logger,
		observer: observer,
		metrics:  NewMetrics(),
	}, nil
}

// Agent returns the identity this broker listens as.
func (b *Broker) Agent() messaging.Agent {
	return b.agent
}

// Metrics returns a snapshot of broker counters.
func (b *Broker) Metrics() MetricsSnapshot {
	return b.metrics.Snapshot()
}

// RegisterHandler associates a handler with an intent. The last
// registration for a given intent wins; replacements are logged.
func (b *Broker) RegisterHandler(intent messaging.Intent, handler HandlerFunc) {
	if replaced := b.handlers.register(intent, handler); replaced {
		b.logger.Warn(
			"handler replaced",
			slog.String("agent", b.agent.String()),
			slog.String("intent", intent.String()),
		)
		return
	}
	b.logger.Debug(
		"handler registered",
		slog.String("agent", b.agent.String()),
		slog.String("intent", intent.String()),
	)
}

// Intents returns the intents this broker has handlers for.
func (b *Broker) Intents() []messaging.Intent {
	return b.handlers.intents()
}

// Publish serializes the message and hands it to the transport tagged
// with routing metadata. Failures are logged and surfaced as false;
// callers must treat false as a soft failure, not a guarantee of
// non-delivery.
func (b *Broker) Publish(ctx context.Context, msg *messaging.Message) bool {
	data, err := messaging.EncodeMessage(msg)
	if err != nil {
		b.logger.Error(
			"failed to encode message",
			slog.String("agent", b.agent.String()),
			slog.String("message_id", msg.MessageID),
			slog.String("error", err.Error()),
		)
		return false
	}

	recipients := make([]string, len(msg.ToAgents))
	for i, to := range msg.ToAgents {
		recipients[i] = to.String()
	}
	props := map[string]string{
		transport.PropKind:   string(messaging.KindRequest),
		transport.PropIntent: msg.Intent.String(),
		transport.PropFrom:   msg.FromAgent.String(),
		transport.PropTo:     strings.Join(recipients, ","),
	}

	if err := b.tr.Publish(ctx, data, props); err != nil {
		b.observer.OnEvent(ctx, observability.Event{
			Type:      EventPublishFailed,
			Level:     observability.LevelError,
			Timestamp: time.Now(),
			Source:    "broker.Publish",
			Data: map[string]any{
				"agent":      b.agent.String(),
				"message_id": msg.MessageID,
				"intent":     msg.Intent.String(),
				"error":      err.Error(),
			},
		})
		return false
	}

	b.metrics.RecordPublished(1)
	b.observer.OnEvent(ctx, observability.Event{
		Type:      EventPublish,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "broker.Publish",
		Data: map[string]any{
			"agent":      b.agent.String(),
			"message_id": msg.MessageID,
			"intent":     msg.Intent.String(),
			"to":         props[transport.PropTo],
		},
	})
	return true
}

// PublishResponse serializes the response and hands it to the
// transport, addressed to its single recipient. Same soft-failure
// contract as Publish.
func (b *Broker) PublishResponse(ctx context.Context, resp *messaging.Response) bool {
	data, err := messaging.EncodeResponse(resp)
	if err != nil {
		b.logger.Error(
			"failed to encode response",
			slog.String("agent", b.agent.String()),
			slog.String("message_id", resp.MessageID),
			slog.String("error", err.Error()),
		)
		return false
	}

	props := map[string]string{
		transport.PropKind: string(messaging.KindResponse),
		transport.PropFrom: resp.FromAgent.String(),
		transport.PropTo:   resp.ToAgent.String(),
	}

	if err := b.tr.Publish(ctx, data, props); err != nil {
		b.observer.OnEvent(ctx, observability.Event{
			Type:      EventPublishFailed,
			Level:     observability.LevelError,
			Timestamp: time.Now(),
			Source:    "broker.PublishResponse",
			Data: map[string]any{
				"agent":      b.agent.String(),
				"message_id": resp.MessageID,
				"status":     string(resp.Status),
				"error":      err.Error(),
			},
		})
		return false
	}

	b.metrics.RecordPublished(1)
	return true
}

// SendQuery builds and publishes a single-recipient request, returning
// its correlation id so the caller can await the response.
func (b *Broker) SendQuery(
	ctx context.Context,
	to messaging.Agent,
	intent messaging.Intent,
	payload map[string]any,
	scope messaging.Context,
) (string, bool) {
	msg := messaging.NewMessage(b.agent, intent, to).
		Payload(payload).
		Context(scope).
		Build()
	return msg.CorrelationID, b.Publish(ctx, msg)
}

// Broadcast builds and publishes one request to multiple agents,
// returning the shared correlation id.
func (b *Broker) Broadcast(
	ctx context.Context,
	to []messaging.Agent,
	intent messaging.Intent,
	payload map[string]any,
	scope messaging.Context,
) (string, bool) {
	msg := messaging.NewMessage(b.agent, intent, to...).
		Payload(payload).
		Context(scope).
		Build()
	return msg.CorrelationID, b.Publish(ctx, msg)
}

// Await blocks until a response with the given correlation id arrives
// from the given agent, or ctx expires. Register the wait before
// publishing the request to avoid racing the response.
func (b *Broker) Await(ctx context.Context, correlationID string, from messaging.Agent) (*messaging.Response, error) {
	ch := b.addWaiter(correlationID, from)
	defer b.removeWaiter(correlationID, from)

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s from %s: %v", ErrAwaitTimeout, correlationID, from, ctx.Err())
	}
}

// AwaitChan registers a waiter and returns its channel without
// blocking. The caller must release it with CancelAwait once done.
func (b *Broker) AwaitChan(correlationID string, from messaging.Agent) <-chan *messaging.Response {
	return b.addWaiter(correlationID, from)
}

// CancelAwait releases a waiter registered with AwaitChan.
func (b *Broker) CancelAwait(correlationID string, from messaging.Agent) {
	b.removeWaiter(correlationID, from)
}

func (b *Broker) addWaiter(correlationID string, from messaging.Agent) chan *messaging.Response {
	key := waiterKey(correlationID, from)
	ch := make(chan *messaging.Response, 1)

	b.waitersMu.Lock()
	b.waiters[key] = ch
	b.waitersMu.Unlock()
	return ch
}

func (b *Broker) removeWaiter(correlationID string, from messaging.Agent) {
	key := waiterKey(correlationID, from)

	b.waitersMu.Lock()
	delete(b.waiters, key)
	b.waitersMu.Unlock()
}

func waiterKey(correlationID string, from messaging.Agent) string {
	return correlationID + "/" + string(from)
}

// Run subscribes as this agent and processes deliveries until ctx is
// cancelled or the transport closes. Handlers run concurrently with
// continued receipt; the idempotency cache is the only shared state.
func (b *Broker) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer b.running.Store(false)

	deliveries, err := b.tr.Subscribe(ctx, b.agent.String())
	if err != nil {
		return fmt.Errorf("subscribe as %s: %w", b.agent, err)
	}

	b.logger.Info("broker listening", slog.String("agent", b.agent.String()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			b.metrics.RecordReceived(1)
			go b.dispatch(ctx, d)
		}
	}
}

// dispatch settles exactly one delivery. Undecodable envelopes and
// silent-drop cases are acknowledged so the transport does not spin on
// them.
func (b *Broker) dispatch(ctx context.Context, d transport.Delivery) {
	kind, err := messaging.PeekKind(d.Body())
	if err != nil {
		b.logger.Warn(
			"dropping undecodable envelope",
			slog.String("agent", b.agent.String()),
			slog.String("error", err.Error()),
		)
		d.Ack()
		return
	}

	if kind == messaging.KindResponse {
		b.dispatchResponse(ctx, d)
		return
	}

	msg, err := messaging.DecodeMessage(d.Body())
	if err != nil {
		b.logger.Warn(
			"dropping invalid request",
			slog.String("agent", b.agent.String()),
			slog.String("error", err.Error()),
		)
		d.Ack()
		return
	}

	if !msg.For(b.agent) {
		d.Ack()
		return
	}

	if b.seen.Seen(msg.MessageID) {
		b.metrics.RecordDuplicate(1)
		b.observer.OnEvent(ctx, observability.Event{
			Type:      EventDuplicate,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "broker.Run",
			Data: map[string]any{
				"agent":      b.agent.String(),
				"message_id": msg.MessageID,
			},
		})
		d.Ack()
		return
	}

	handler, exists := b.handlers.get(msg.Intent)
	if !exists {
		b.observer.OnEvent(ctx, observability.Event{
			Type:      EventUnknownIntent,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "broker.Run",
			Data: map[string]any{
				"agent":  b.agent.String(),
				"intent": msg.Intent.String(),
			},
		})
		b.PublishResponse(ctx, messaging.NewError(
			b.agent, msg, "No handler for intent: "+msg.Intent.String(),
		))
		d.Ack()
		return
	}

	result, err := handler(ctx, msg)
	if err != nil {
		b.metrics.RecordHandlerError(1)
		b.observer.OnEvent(ctx, observability.Event{
			Type:      EventHandlerFailed,
			Level:     observability.LevelError,
			Timestamp: time.Now(),
			Source:    "broker.Run",
			Data: map[string]any{
				"agent":      b.agent.String(),
				"message_id": msg.MessageID,
				"intent":     msg.Intent.String(),
				"attempt":    d.Count(),
				"policy":     string(b.policy),
				"error":      err.Error(),
			},
		})

		switch b.policy {
		case ErrorPolicyAbandonForRetry:
			d.Abandon()
		default:
			b.PublishResponse(ctx, messaging.NewError(b.agent, msg, err.Error()))
			d.Ack()
		}
		return
	}

	// Mark processed only after the handler succeeded, so a crash
	// mid-handler leaves the message eligible for redelivery.
	b.seen.MarkSeen(msg.MessageID)
	b.metrics.RecordDispatched(1)
	b.observer.OnEvent(ctx, observability.Event{
		Type:      EventDispatch,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "broker.Run",
		Data: map[string]any{
			"agent":      b.agent.String(),
			"message_id": msg.MessageID,
			"intent":     msg.Intent.String(),
		},
	})
	b.PublishResponse(ctx, messaging.NewSuccess(b.agent, msg, result))
	d.Ack()
}

func (b *Broker) dispatchResponse(ctx context.Context, d transport.Delivery) {
	resp, err := messaging.DecodeResponse(d.Body())
	if err != nil {
		b.logger.Warn(
			"dropping invalid response",
			slog.String("agent", b.agent.String()),
			slog.String("error", err.Error()),
		)
		d.Ack()
		return
	}

	if resp.ToAgent != b.agent {
		d.Ack()
		return
	}

	key := waiterKey(resp.CorrelationID, resp.FromAgent)
	b.waitersMu.Lock()
	ch, exists := b.waiters[key]
	b.waitersMu.Unlock()

	if !exists {
		b.observer.OnEvent(ctx, observability.Event{
			Type:      EventResponseOrphan,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "broker.Run",
			Data: map[string]any{
				"agent":          b.agent.String(),
				"correlation_id": resp.CorrelationID,
				"from":           resp.FromAgent.String(),
			},
		})
		d.Ack()
		return
	}

	select {
	case ch <- resp:
		b.observer.OnEvent(ctx, observability.Event{
			Type:      EventResponseMatched,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "broker.Run",
			Data: map[string]any{
				"agent":          b.agent.String(),
				"correlation_id": resp.CorrelationID,
				"from":           resp.FromAgent.String(),
				"status":         string(resp.Status),
			},
		})
	default:
	}
	d.Ack()
}

// Close releases transport resources. Safe to call multiple times.
func (b *Broker) Close() error {
	return b.tr.Close()
}
