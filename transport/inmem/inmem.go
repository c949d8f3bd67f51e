// Package inmem implements transport.Transport as an in-process bus
// with per-subscription buffered channels, exponential-backoff
// redelivery, and a dead-letter stream for envelopes that exhaust their
// delivery budget.
package inmem

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wealthops/advisory-mesh/transport"
)

// Config controls bus buffering and redelivery behavior.
type Config struct {
	// BufferSize is the per-subscription channel capacity.
	BufferSize int
	// MaxDeliveryCount is the number of delivery attempts before an
	// envelope is dead-lettered.
	MaxDeliveryCount int
	// InitialRedeliveryDelay seeds the exponential backoff between
	// redelivery attempts.
	InitialRedeliveryDelay time.Duration
	// MaxRedeliveryDelay caps the backoff interval.
	MaxRedeliveryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:             100,
		MaxDeliveryCount:       5,
		InitialRedeliveryDelay: 50 * time.Millisecond,
		MaxRedeliveryDelay:     2 * time.Second,
	}
}

// DeadLetter is an envelope that exhausted its delivery budget.
type DeadLetter struct {
	Subscription string
	Body         []byte
	Props        map[string]string
	Deliveries   int
}

// Bus is an in-memory Transport. Envelopes published with a "to"
// property are delivered only to the named subscriptions; envelopes
// without one fan out to every subscription.
type Bus struct {
	cfg Config

	mu     sync.RWMutex
	subs   map[string]*subscription
	closed bool

	dead chan DeadLetter
}

// New creates a Bus with the given configuration. Zero fields fall back
// to defaults.
func New(cfg Config) *Bus {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.MaxDeliveryCount <= 0 {
		cfg.MaxDeliveryCount = def.MaxDeliveryCount
	}
	if cfg.InitialRedeliveryDelay <= 0 {
		cfg.InitialRedeliveryDelay = def.InitialRedeliveryDelay
	}
	if cfg.MaxRedeliveryDelay <= 0 {
		cfg.MaxRedeliveryDelay = def.MaxRedeliveryDelay
	}

	return &Bus{
		cfg:  cfg,
		subs: make(map[string]*subscription),
		dead: make(chan DeadLetter, cfg.BufferSize),
	}
}

func (b *Bus) Publish(ctx context.Context, body []byte, props map[string]string) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return transport.ErrClosed
	}
	targets := b.match(props)
	b.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.enqueue(body, props, 1, b.newBackoff()); err != nil {
			return fmt.Errorf("subscription %s: %w", sub.name, err)
		}
	}
	return nil
}

// match resolves the subscriptions an envelope should reach. Caller
// holds b.mu.
func (b *Bus) match(props map[string]string) []*subscription {
	to := props[transport.PropTo]
	if to == "" {
		targets := make([]*subscription, 0, len(b.subs))
		for _, sub := range b.subs {
			targets = append(targets, sub)
		}
		return targets
	}

	var targets []*subscription
	for _, name := range strings.Split(to, ",") {
		if sub, exists := b.subs[strings.TrimSpace(name)]; exists {
			targets = append(targets, sub)
		}
	}
	return targets
}

func (b *Bus) Subscribe(ctx context.Context, subscription string) (<-chan transport.Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, transport.ErrClosed
	}
	if sub, exists := b.subs[subscription]; exists {
		return sub.ch, nil
	}

	sub := newSubscription(b, subscription, b.cfg.BufferSize)
	b.subs[subscription] = sub
	return sub.ch, nil
}

// DeadLetters returns the stream of envelopes that exhausted their
// delivery budget.
func (b *Bus) DeadLetters() <-chan DeadLetter {
	return b.dead
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
	close(b.dead)
	return nil
}

func (b *Bus) newBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.cfg.InitialRedeliveryDelay
	bo.MaxInterval = b.cfg.MaxRedeliveryDelay
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// deadLetter records an exhausted envelope without blocking; if the
// dead-letter buffer is full the envelope is dropped.
func (b *Bus) deadLetter(dl DeadLetter) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.dead <- dl:
	default:
	}
}

type subscription struct {
	bus  *Bus
	name string
	ch   chan transport.Delivery
}

func newSubscription(bus *Bus, name string, buffer int) *subscription {
	return &subscription{
		bus:  bus,
		name: name,
		ch:   make(chan transport.Delivery, buffer),
	}
}

func (s *subscription) enqueue(body []byte, props map[string]string, count int, bo backoff.BackOff) error {
	d := &delivery{
		sub:   s,
		body:  body,
		props: maps.Clone(props),
		count: count,
		bo:    bo,
	}

	select {
	case s.ch <- d:
		return nil
	default:
		return transport.ErrBufferFull
	}
}

// redeliver re-enqueues an abandoned envelope after its backoff delay
// has elapsed. The bus may have closed in the meantime; the envelope is
// dropped in that case.
func (s *subscription) redeliver(body []byte, props map[string]string, count int, bo backoff.BackOff) {
	s.bus.mu.RLock()
	closed := s.bus.closed
	s.bus.mu.RUnlock()
	if closed {
		return
	}
	// Buffer-full on redelivery drops the attempt; the count was already
	// consumed so the envelope heads toward the dead-letter budget.
	_ = s.enqueue(body, props, count, bo)
}

type delivery struct {
	sub     *subscription
	body    []byte
	props   map[string]string
	count   int
	bo      backoff.BackOff
	settled atomic.Bool
}

func (d *delivery) Body() []byte {
	return d.body
}

func (d *delivery) Props() map[string]string {
	return d.props
}

func (d *delivery) Count() int {
	return d.count
}

func (d *delivery) Ack() {
	d.settled.Store(true)
}

func (d *delivery) Abandon() {
	if !d.settled.CompareAndSwap(false, true) {
		return
	}

	if d.count >= d.sub.bus.cfg.MaxDeliveryCount {
		d.sub.bus.deadLetter(DeadLetter{
			Subscription: d.sub.name,
			Body:         d.body,
			Props:        d.props,
			Deliveries:   d.count,
		})
		return
	}

	delay := d.bo.NextBackOff()
	if delay == backoff.Stop {
		delay = d.sub.bus.cfg.MaxRedeliveryDelay
	}
	time.AfterFunc(delay, func() {
		d.sub.redeliver(d.body, d.props, d.count+1, d.bo)
	})
}
