package agents

import (
	"context"
	"fmt"

	"github.com/wealthops/advisory-mesh/config"
	"github.com/wealthops/advisory-mesh/messaging"
	"github.com/wealthops/advisory-mesh/transport"
)

// Plan data request kinds served by the api agent.
const (
	PlanPerformance    = "performance"
	PlanReconciliation = "reconciliation"
)

// PlanRequest is one canonical external-data fetch.
type PlanRequest struct {
	Kind       string
	AccountIDs []string
	Scope      messaging.Context
}

// PlanEngine fetches plan performance or reconciliation data from the
// external providers.
type PlanEngine func(ctx context.Context, req PlanRequest) (map[string]any, error)

// NewAPI creates the api agent service over a plan data engine. Both
// intents require a household scope; requests without one are answered
// with an error.
func NewAPI(tr transport.Transport, cfg config.BrokerConfig, engine PlanEngine) (*Service, error) {
	s, err := NewService(messaging.AgentAPI, tr, cfg)
	if err != nil {
		return nil, err
	}

	s.Handle(messaging.IntentPerfSummary, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		if msg.Context.HouseholdID == "" {
			return nil, fmt.Errorf("household_id required for performance summary")
		}
		return engine(ctx, PlanRequest{Kind: PlanPerformance, Scope: msg.Context})
	})

	s.Handle(messaging.IntentRecon, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		if msg.Context.HouseholdID == "" {
			return nil, fmt.Errorf("household_id required for reconciliation")
		}
		return engine(ctx, PlanRequest{
			Kind:       PlanReconciliation,
			AccountIDs: payloadStrings(msg, "account_ids"),
			Scope:      msg.Context,
		})
	})

	return s, nil
}

// payloadStrings reads a string-slice payload field, tolerating the
// []any shape JSON decoding produces.
func payloadStrings(msg *messaging.Message, key string) []string {
	switch v := msg.Payload[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
