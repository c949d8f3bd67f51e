// Package orchestrate coordinates one advisor query across the agent
// mesh.
//
// A Coordinator routes the query to an intent (package routing), fans
// a request out to each agent that intent requires, and streams
// progress Updates back to the caller: status transitions, one partial
// per agent result, and exactly one terminal update carrying either
// the composed response or an error. Agents run under independent
// timeouts, so one slow or failing agent degrades the answer instead
// of aborting the query.
//
// AgentClient abstracts how requests reach agents: BrokerClient
// crosses the A2A transport, LocalClient calls in-process functions.
// Sessions are retained in a bounded TTL store keyed by correlation
// id.
package orchestrate
