package messaging

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"
)

// Context carries cross-cutting request scope shared by every agent a
// query fans out to.
type Context struct {
	HouseholdID string         `json:"household_id,omitempty"`
	AccountID   string         `json:"account_id,omitempty"`
	Auth        map[string]any `json:"auth,omitempty"`
}

// Message is the A2A request envelope. MessageID is globally unique per
// publish and doubles as the idempotency key; CorrelationID groups the
// request with its eventual responses and is shared by every message
// fanned out for one user query.
type Message struct {
	Kind          Kind           `json:"kind" validate:"required,eq=request"`
	MessageID     string         `json:"message_id" validate:"required"`
	CorrelationID string         `json:"correlation_id" validate:"required"`
	Timestamp     time.Time      `json:"timestamp"`
	FromAgent     Agent          `json:"from_agent" validate:"required,oneof=orchestrator nl2sql vector api frontend"`
	ToAgents      []Agent        `json:"to_agents" validate:"required,min=1,dive,oneof=orchestrator nl2sql vector api frontend"`
	Intent        Intent         `json:"intent" validate:"required"`
	Payload       map[string]any `json:"payload,omitempty"`
	Context       Context        `json:"context"`
	Status        Status         `json:"status"`
}

// For reports whether agent is among the message recipients. An agent
// only processes a request if its own identity is a member of ToAgents.
func (m *Message) For(agent Agent) bool {
	return slices.Contains(m.ToAgents, agent)
}

// Clone returns a deep-enough copy for safe mutation of recipients and
// payload keys. Payload values are shared.
func (m *Message) Clone() *Message {
	clone := *m
	clone.ToAgents = slices.Clone(m.ToAgents)
	clone.Payload = maps.Clone(m.Payload)
	return &clone
}

func (m *Message) String() string {
	return fmt.Sprintf(
		"Message{ID: %s, Corr: %s, From: %s, To: %v, Intent: %s}",
		m.MessageID,
		m.CorrelationID,
		m.FromAgent,
		m.ToAgents,
		m.Intent,
	)
}

// Response is the A2A response envelope. MessageID is fresh, never the
// request's; CorrelationID is copied from the triggering request so
// fanned-out results can be reassembled.
type Response struct {
	Kind          Kind           `json:"kind" validate:"required,eq=response"`
	MessageID     string         `json:"message_id" validate:"required"`
	CorrelationID string         `json:"correlation_id" validate:"required"`
	Timestamp     time.Time      `json:"timestamp"`
	FromAgent     Agent          `json:"from_agent" validate:"required,oneof=orchestrator nl2sql vector api frontend"`
	ToAgent       Agent          `json:"to_agent" validate:"required,oneof=orchestrator nl2sql vector api frontend"`
	Status        Status         `json:"status" validate:"required,oneof=success error"`
	Result        map[string]any `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// OK reports whether the response carries a successful result.
func (r *Response) OK() bool {
	return r.Status == StatusSuccess
}

func (r *Response) String() string {
	return fmt.Sprintf(
		"Response{ID: %s, Corr: %s, From: %s, To: %s, Status: %s}",
		r.MessageID,
		r.CorrelationID,
		r.FromAgent,
		r.ToAgent,
		r.Status,
	)
}

// newMessageID returns a time-sortable UUIDv7 message identifier.
func newMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewCorrelationID returns a compact globally unique correlation
// identifier for grouping a request with its responses.
func NewCorrelationID() string {
	return xid.New().String()
}
