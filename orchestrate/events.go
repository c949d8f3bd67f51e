package orchestrate

import (
	"time"

	"github.com/wealthops/advisory-mesh/messaging"
	"github.com/wealthops/advisory-mesh/observability"
)

// UpdateType classifies a streamed progress update. Exactly one
// terminal update (complete or error) ends every stream.
type UpdateType string

const (
	// UpdateStatus reports coordinator progress: intent detected,
	// agents contacted, composition started.
	UpdateStatus UpdateType = "status"

	// UpdatePartial reports one agent's result arriving.
	UpdatePartial UpdateType = "partial"

	// UpdateComplete carries the final composed response as JSON.
	// Terminal.
	UpdateComplete UpdateType = "complete"

	// UpdateError reports that the query could not be processed.
	// Terminal.
	UpdateError UpdateType = "error"
)

// Update is one entry in a query's progress stream.
type Update struct {
	Type      UpdateType      `json:"type"`
	Content   string          `json:"content"`
	Agent     messaging.Agent `json:"agent"`
	Timestamp time.Time       `json:"timestamp"`
}

// Terminal reports whether this update ends the stream.
func (u Update) Terminal() bool {
	return u.Type == UpdateComplete || u.Type == UpdateError
}

// Coordinator observability event types.
const (
	EventQueryStart    observability.EventType = "coordinator.query.start"
	EventQueryRouted   observability.EventType = "coordinator.query.routed"
	EventAgentResult   observability.EventType = "coordinator.agent.result"
	EventAgentFailed   observability.EventType = "coordinator.agent.failed"
	EventQueryComplete observability.EventType = "coordinator.query.complete"
	EventQueryFailed   observability.EventType = "coordinator.query.failed"
)
