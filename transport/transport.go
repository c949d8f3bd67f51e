// Package transport abstracts the pub-sub product the mesh runs on.
// A Transport carries opaque envelope bytes between agents; delivery is
// at-least-once, so consumers settle each Delivery with Ack or Abandon
// and must tolerate redelivery.
package transport

import (
	"context"
	"errors"
)

// Property keys brokers attach to published envelopes so transports can
// filter deliveries per subscription.
const (
	PropKind   = "kind"
	PropIntent = "intent"
	PropFrom   = "from"
	PropTo     = "to"
)

// Sentinel errors for transport operations.
var (
	ErrClosed     = errors.New("transport closed")
	ErrBufferFull = errors.New("subscription buffer full")
)

// Delivery is one attempt to hand an envelope to a consumer. Count is
// 1-based and increases on each redelivery. Exactly one of Ack or
// Abandon settles the delivery; further calls are no-ops.
type Delivery interface {
	// Body returns the raw envelope bytes.
	Body() []byte
	// Props returns the routing metadata attached at publish time.
	Props() map[string]string
	// Count returns the delivery attempt number, starting at 1.
	Count() int
	// Ack settles the delivery; the transport will not redeliver.
	Ack()
	// Abandon negatively acknowledges the delivery so the transport may
	// redeliver it, up to its configured delivery limit.
	Abandon()
}

// Transport is a topic-style bus with named subscriptions, one per
// agent identity.
type Transport interface {
	// Publish hands envelope bytes to the bus tagged with routing
	// properties. A nil error means the bus accepted the message, not
	// that any consumer has seen it.
	Publish(ctx context.Context, body []byte, props map[string]string) error

	// Subscribe returns the delivery stream for a named subscription.
	// The channel closes when the transport closes.
	Subscribe(ctx context.Context, subscription string) (<-chan Delivery, error)

	// Close releases transport resources. Safe to call multiple times.
	Close() error
}
