// Package agents provides the thin services behind each non-orchestrator
// mesh identity. A Service owns a broker, registers per-intent
// handlers, and delegates the actual work to an injected engine, so
// the mesh wiring stays independent of how SQL generation, vector
// search, or external data access is implemented.
//
// The handlers canonicalize each intent's request before calling the
// engine: TopCash becomes a "top N households by cash balance" query,
// RMD carries its lookahead window, CRMPOI its result count. Engines
// see normalized inputs regardless of how the advisor phrased the
// original question.
package agents
