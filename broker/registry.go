package broker

import (
	"context"
	"sort"
	"sync"

	"github.com/wealthops/advisory-mesh/messaging"
)

// HandlerFunc processes one request envelope and returns the result map
// carried verbatim in the success response. Delivery is at-least-once,
// so handlers must be idempotent or cheaply retryable.
type HandlerFunc func(ctx context.Context, msg *messaging.Message) (map[string]any, error)

// registry maps intents to handlers. Populated at agent start-up and
// read-only during message processing; the lock exists for the rare
// late registration, not the hot path.
type registry struct {
	mu       sync.RWMutex
	handlers map[messaging.Intent]HandlerFunc
}

func newRegistry() *registry {
	return &registry{
		handlers: make(map[messaging.Intent]HandlerFunc),
	}
}

// register associates a handler with an intent. The last registration
// for an intent wins; replaced reports whether one was overwritten.
func (r *registry) register(intent messaging.Intent, handler HandlerFunc) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced = r.handlers[intent]
	r.handlers[intent] = handler
	return replaced
}

func (r *registry) get(intent messaging.Intent) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.handlers[intent]
	return h, exists
}

// intents returns the registered intents in sorted order.
func (r *registry) intents() []messaging.Intent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]messaging.Intent, 0, len(r.handlers))
	for intent := range r.handlers {
		out = append(out, intent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
