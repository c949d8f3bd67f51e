package orchestrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wealthops/advisory-mesh/config"
	"github.com/wealthops/advisory-mesh/messaging"
	"github.com/wealthops/advisory-mesh/observability"
	"github.com/wealthops/advisory-mesh/routing"
)

const fallbackAnswer = "Sorry, I couldn't process your request at this time."

// Coordinator fans one advisor query out to the agents its intent
// requires and streams progress back to the caller. Agents fail
// independently: a timeout or error from one never aborts the others,
// and the final response is composed from whatever succeeded.
type Coordinator struct {
	identity messaging.Agent
	router   routing.Router
	client   AgentClient
	composer Composer
	sessions *SessionStore
	timeout  time.Duration

	logger   *slog.Logger
	observer observability.Observer
}

// NewCoordinator creates a Coordinator speaking as the orchestrator.
func NewCoordinator(router routing.Router, client AgentClient, composer Composer, cfg config.CoordinatorConfig) (*Coordinator, error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		identity: messaging.AgentOrchestrator,
		router:   router,
		client:   client,
		composer: composer,
		sessions: NewSessionStore(cfg.SessionCap, cfg.SessionTTL()),
		timeout:  cfg.AgentTimeout(),
		logger:   logger,
		observer: observer,
	}, nil
}

// Sessions exposes the session store for inspection and shutdown
// draining.
func (c *Coordinator) Sessions() *SessionStore {
	return c.sessions
}

// ProcessQuery routes, fans out, and composes one query, streaming
// progress on the returned channel. The channel is closed after
// exactly one terminal update (complete or error); cancelling ctx
// stops processing and terminates the stream with an error update.
func (c *Coordinator) ProcessQuery(ctx context.Context, req QueryRequest) <-chan Update {
	updates := make(chan Update, 16)
	go c.run(ctx, req, updates)
	return updates
}

// ProcessQuerySync runs ProcessQuery to completion and returns the
// final response. Used by tests and request/response surfaces that do
// not stream.
func (c *Coordinator) ProcessQuerySync(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	var last Update
	for update := range c.ProcessQuery(ctx, req) {
		last = update
	}

	if last.Type != UpdateComplete {
		return QueryResponse{
			Answer:     fallbackAnswer,
			Citations:  []Citation{},
			AgentCalls: []string{},
		}, fmt.Errorf("query did not complete: %s", last.Content)
	}

	var resp QueryResponse
	if err := json.Unmarshal([]byte(last.Content), &resp); err != nil {
		return QueryResponse{}, fmt.Errorf("failed to parse final response: %w", err)
	}
	return resp, nil
}

type agentOutcome struct {
	agent  messaging.Agent
	result map[string]any
	err    error
}

func (c *Coordinator) run(ctx context.Context, req QueryRequest, updates chan<- Update) {
	defer close(updates)
	start := time.Now()

	if !c.status(ctx, updates, c.identity, "Processing query...") {
		c.terminateCancelled(updates, ctx)
		return
	}

	decision, err := c.router.Route(ctx, req.Query)
	if err != nil {
		c.observer.OnEvent(ctx, observability.Event{
			Type:      EventQueryFailed,
			Level:     observability.LevelError,
			Timestamp: time.Now(),
			Source:    "orchestrate.ProcessQuery",
			Data:      map[string]any{"error": err.Error()},
		})
		c.emit(ctx, updates, Update{
			Type:      UpdateError,
			Content:   "Query processing failed: " + err.Error(),
			Agent:     c.identity,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	correlationID := messaging.NewCorrelationID()
	c.sessions.Begin(correlationID, req.Query, decision.Intent)

	c.observer.OnEvent(ctx, observability.Event{
		Type:      EventQueryStart,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "orchestrate.ProcessQuery",
		Data: map[string]any{
			"correlation_id": correlationID,
			"intent":         decision.Intent.String(),
		},
	})

	if !c.status(ctx, updates, c.identity, fmt.Sprintf("Detected intent: %s", decision.Intent)) {
		c.finishCancelled(updates, ctx, correlationID)
		return
	}

	agentNames := make([]string, len(decision.Agents))
	for i, agent := range decision.Agents {
		agentNames[i] = agent.String()
	}
	c.observer.OnEvent(ctx, observability.Event{
		Type:      EventQueryRouted,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "orchestrate.ProcessQuery",
		Data: map[string]any{
			"correlation_id": correlationID,
			"intent":         decision.Intent.String(),
			"agents":         agentNames,
			"reasoning":      decision.Reasoning,
		},
	})

	if !c.status(ctx, updates, c.identity, fmt.Sprintf("Routing to agents: %v", agentNames)) {
		c.finishCancelled(updates, ctx, correlationID)
		return
	}

	scope := messaging.Context{
		HouseholdID: req.HouseholdID,
		AccountID:   req.AccountID,
		Auth:        req.UserContext,
	}

	outcomes := make(chan agentOutcome, len(decision.Agents))
	for _, agent := range decision.Agents {
		go func(agent messaging.Agent) {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			msg := messaging.NewMessage(c.identity, decision.Intent, agent).
				CorrelationID(correlationID).
				Payload(shapePayload(decision.Intent, req)).
				Context(scope).
				Build()

			result, err := c.client.Query(callCtx, agent, msg)
			outcomes <- agentOutcome{agent: agent, result: result, err: err}
		}(agent)
	}

	results := make(map[messaging.Agent]map[string]any)
	for range decision.Agents {
		var outcome agentOutcome
		select {
		case outcome = <-outcomes:
		case <-ctx.Done():
			c.finishCancelled(updates, ctx, correlationID)
			return
		}

		if outcome.err != nil {
			c.sessions.RecordFailure(correlationID, outcome.agent, outcome.err.Error())
			c.observer.OnEvent(ctx, observability.Event{
				Type:      EventAgentFailed,
				Level:     observability.LevelWarning,
				Timestamp: time.Now(),
				Source:    "orchestrate.ProcessQuery",
				Data: map[string]any{
					"correlation_id": correlationID,
					"agent":          outcome.agent.String(),
					"error":          outcome.err.Error(),
				},
			})

			content := fmt.Sprintf("Error from %s: %s, continuing...", outcome.agent, outcome.err)
			if errors.Is(outcome.err, context.DeadlineExceeded) {
				content = fmt.Sprintf("Timeout from %s, continuing...", outcome.agent)
			}
			if !c.status(ctx, updates, outcome.agent, content) {
				c.finishCancelled(updates, ctx, correlationID)
				return
			}
			continue
		}

		results[outcome.agent] = outcome.result
		c.sessions.RecordResult(correlationID, outcome.agent, outcome.result)
		c.observer.OnEvent(ctx, observability.Event{
			Type:      EventAgentResult,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "orchestrate.ProcessQuery",
			Data: map[string]any{
				"correlation_id": correlationID,
				"agent":          outcome.agent.String(),
			},
		})

		if !c.emit(ctx, updates, Update{
			Type:      UpdatePartial,
			Content:   fmt.Sprintf("Received response from %s", outcome.agent),
			Agent:     outcome.agent,
			Timestamp: time.Now().UTC(),
		}) {
			c.finishCancelled(updates, ctx, correlationID)
			return
		}
	}

	if !c.status(ctx, updates, c.identity, "Composing final response...") {
		c.finishCancelled(updates, ctx, correlationID)
		return
	}

	comp, err := c.composer.Compose(ctx, decision.Intent, req.Query, results)
	if err != nil {
		// The composer's failure details stay in the logs; the caller
		// gets a generic apology, never internals.
		c.logger.Error(
			"composition failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		c.sessions.Finish(correlationID, SessionError)
		c.observer.OnEvent(ctx, observability.Event{
			Type:      EventQueryFailed,
			Level:     observability.LevelError,
			Timestamp: time.Now(),
			Source:    "orchestrate.ProcessQuery",
			Data: map[string]any{
				"correlation_id": correlationID,
				"stage":          "compose",
			},
		})
		c.emit(ctx, updates, Update{
			Type:      UpdateError,
			Content:   fallbackAnswer,
			Agent:     c.identity,
			Timestamp: time.Now().UTC(),
		})
		return
	}
	if comp.Citations == nil {
		comp.Citations = []Citation{}
	}

	response := QueryResponse{
		Answer:          comp.Answer,
		Citations:       comp.Citations,
		SQLGenerated:    comp.GeneratedSQL,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		AgentCalls:      agentNames,
	}

	body, err := json.Marshal(response)
	if err != nil {
		c.sessions.Finish(correlationID, SessionError)
		c.emit(ctx, updates, Update{
			Type:      UpdateError,
			Content:   "Query processing failed: " + err.Error(),
			Agent:     c.identity,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	c.sessions.Finish(correlationID, SessionComplete)
	c.observer.OnEvent(ctx, observability.Event{
		Type:      EventQueryComplete,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "orchestrate.ProcessQuery",
		Data: map[string]any{
			"correlation_id":    correlationID,
			"agents_succeeded":  len(results),
			"agents_failed":     len(decision.Agents) - len(results),
			"execution_time_ms": response.ExecutionTimeMS,
		},
	})
	c.emit(ctx, updates, Update{
		Type:      UpdateComplete,
		Content:   string(body),
		Agent:     c.identity,
		Timestamp: time.Now().UTC(),
	})
}

// status emits a non-terminal status update, reporting false if ctx is
// done.
func (c *Coordinator) status(ctx context.Context, updates chan<- Update, agent messaging.Agent, content string) bool {
	return c.emit(ctx, updates, Update{
		Type:      UpdateStatus,
		Content:   content,
		Agent:     agent,
		Timestamp: time.Now().UTC(),
	})
}

func (c *Coordinator) emit(ctx context.Context, updates chan<- Update, u Update) bool {
	select {
	case updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

// finishCancelled marks the session errored and best-effort emits the
// terminal error update.
func (c *Coordinator) finishCancelled(updates chan<- Update, ctx context.Context, correlationID string) {
	c.sessions.Finish(correlationID, SessionError)
	c.terminateCancelled(updates, ctx)
}

// terminateCancelled best-effort emits a terminal error update without
// blocking; the consumer may already be gone.
func (c *Coordinator) terminateCancelled(updates chan<- Update, ctx context.Context) {
	select {
	case updates <- Update{
		Type:      UpdateError,
		Content:   "Query processing failed: " + ctx.Err().Error(),
		Agent:     c.identity,
		Timestamp: time.Now().UTC(),
	}:
	default:
	}
}

// shapePayload builds the per-agent request payload. Every agent gets
// the raw query and a default result limit; some intents carry extra
// parameters their handlers expect.
func shapePayload(intent messaging.Intent, req QueryRequest) map[string]any {
	payload := map[string]any{
		"query": req.Query,
		"limit": 10,
	}
	switch intent {
	case messaging.IntentRMD:
		payload["days"] = 90
	case messaging.IntentCRMPOI:
		payload["top_k"] = 5
	}
	return payload
}
