// Package routing maps free-text advisor queries to intents and
// intents to the agents that serve them.
//
// Intent detection is a pluggable Router strategy. The keyword router
// scores case-insensitive substring matches against a fixed pattern
// table and is fully deterministic; the LLM router asks a chat model
// for a structured routing decision. FallbackRouter chains the two so
// provider failures degrade to keyword scoring instead of failing the
// query.
//
// The agent routing table is static by default and can be overridden
// from a YAML file, which also lets deployments extend the keyword
// patterns without a rebuild.
package routing
