package routing

import (
	"context"

	"github.com/wealthops/advisory-mesh/messaging"
)

// Decision is the outcome of routing one query: the detected intent,
// the agents that should serve it, and an optional explanation of how
// the router decided.
type Decision struct {
	Intent    messaging.Intent
	Agents    []messaging.Agent
	Reasoning string
}

// Router turns a free-text query into a routing Decision. Routing the
// same query twice must yield the same Decision unless the router's
// underlying model changed.
type Router interface {
	Route(ctx context.Context, query string) (Decision, error)
}
