// Package broker implements each agent's endpoint on the A2A mesh.
//
// A Broker wraps a transport.Transport and offers four operations:
// Publish and PublishResponse hand envelopes to the transport tagged
// with routing metadata and report failure as a boolean; RegisterHandler
// binds an intent to a HandlerFunc; Run is the long-lived receive loop.
//
// # Receive Loop
//
// For each delivery, Run branches on the envelope's kind discriminator.
// Responses route to correlation waiters registered via Await. Requests
// pass four gates in order:
//
//  1. Membership: a request not addressed to this agent is silently
//     dropped and acknowledged.
//  2. Idempotency: a message id already processed within the retention
//     window is silently dropped, with no second handler invocation and
//     no response.
//  3. Handler lookup: an intent with no registered handler is answered
//     with an error response naming the missing intent, never silently
//     dropped.
//  4. Invocation: the handler's result map becomes the success
//     response; the message is marked processed only after the handler
//     completes.
//
// # Failure Policy
//
// Delivery is at-least-once, so a failed handler poses a choice: answer
// the caller or ask the transport to retry. The broker does exactly one
// of the two, selected by configuration:
//
//   - answer_and_ack: publish an error response and acknowledge
//   - abandon_for_retry: publish nothing and abandon the delivery
//
// Handlers must be idempotent or cheaply retryable under either policy,
// since the transport may redeliver for reasons of its own.
package broker
