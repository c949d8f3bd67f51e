package messaging

import "time"

// MessageBuilder assembles request envelopes with generated identifiers
// and creation timestamps.
type MessageBuilder struct {
	message *Message
}

// NewMessage starts a request envelope from sender to one or more
// recipients. The builder generates a fresh message id and correlation
// id; use CorrelationID to join an existing query.
func NewMessage(from Agent, intent Intent, to ...Agent) *MessageBuilder {
	return &MessageBuilder{
		message: &Message{
			Kind:          KindRequest,
			MessageID:     newMessageID(),
			CorrelationID: NewCorrelationID(),
			Timestamp:     time.Now().UTC(),
			FromAgent:     from,
			ToAgents:      to,
			Intent:        intent,
			Status:        StatusPending,
		},
	}
}

// CorrelationID overrides the generated correlation id so the message
// joins an already-running query.
func (mb *MessageBuilder) CorrelationID(id string) *MessageBuilder {
	mb.message.CorrelationID = id
	return mb
}

// Payload sets the intent-specific payload map.
func (mb *MessageBuilder) Payload(payload map[string]any) *MessageBuilder {
	mb.message.Payload = payload
	return mb
}

// Context sets the cross-cutting request scope.
func (mb *MessageBuilder) Context(ctx Context) *MessageBuilder {
	mb.message.Context = ctx
	return mb
}

// Build returns the assembled message.
func (mb *MessageBuilder) Build() *Message {
	return mb.message
}

// NewSuccess builds a success response for the given request. The
// response gets a fresh message id and copies the request's correlation
// id; the handler's result map is carried verbatim.
func NewSuccess(from Agent, req *Message, result map[string]any) *Response {
	if result == nil {
		result = map[string]any{}
	}
	return &Response{
		Kind:          KindResponse,
		MessageID:     newMessageID(),
		CorrelationID: req.CorrelationID,
		Timestamp:     time.Now().UTC(),
		FromAgent:     from,
		ToAgent:       req.FromAgent,
		Status:        StatusSuccess,
		Result:        result,
	}
}

// NewError builds an error response for the given request. Result is
// left empty; the error text is the only diagnostic carried back.
func NewError(from Agent, req *Message, errText string) *Response {
	return &Response{
		Kind:          KindResponse,
		MessageID:     newMessageID(),
		CorrelationID: req.CorrelationID,
		Timestamp:     time.Now().UTC(),
		FromAgent:     from,
		ToAgent:       req.FromAgent,
		Status:        StatusError,
		Result:        map[string]any{},
		Error:         errText,
	}
}
