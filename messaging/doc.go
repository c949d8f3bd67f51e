// Package messaging defines the A2A envelope: the typed request and
// response messages agents exchange over the transport.
//
// # Envelope Kinds
//
// Every envelope carries an explicit kind discriminator:
//
//   - request: a Message asking a set of agents to perform an intent
//   - response: a Response carrying one agent's result back to the sender
//
// Receivers branch on the discriminator via PeekKind before decoding,
// so request and response parsing never rely on field shape.
//
// # Identity and Correlation
//
// A Message owns two identifiers with distinct roles:
//
//   - MessageID: unique per publish (UUIDv7), never reused; this is the
//     idempotency key brokers deduplicate on
//   - CorrelationID: shared by one request and all of its responses;
//     fan-out sends several messages under one correlation id and the
//     orchestrator reassembles results by it
//
// # Construction
//
// Envelopes are built with the fluent builder or the response helpers:
//
//	msg := messaging.NewMessage(messaging.AgentOrchestrator, messaging.IntentTopCash, messaging.AgentNL2SQL).
//	    Payload(map[string]any{"query": "top cash balances", "limit": 10}).
//	    Context(messaging.Context{HouseholdID: "HH-001"}).
//	    Build()
//
//	resp := messaging.NewSuccess(messaging.AgentNL2SQL, msg, rows)
//
// Validation runs on every encode and decode; a message with no
// recipients or an unknown agent identity never reaches the wire.
package messaging
