package agents

import (
	"context"
	"fmt"

	"github.com/wealthops/advisory-mesh/config"
	"github.com/wealthops/advisory-mesh/messaging"
	"github.com/wealthops/advisory-mesh/transport"
)

// SQLEngine translates a canonical natural-language query into SQL,
// executes it, and returns the result map carried back to the
// orchestrator.
type SQLEngine func(ctx context.Context, query string, scope messaging.Context) (map[string]any, error)

// NewNL2SQL creates the nl2sql agent service. Every structured-data
// intent is canonicalized into a natural-language query for the
// engine.
func NewNL2SQL(tr transport.Transport, cfg config.BrokerConfig, engine SQLEngine) (*Service, error) {
	s, err := NewService(messaging.AgentNL2SQL, tr, cfg)
	if err != nil {
		return nil, err
	}

	s.Handle(messaging.IntentCashBalance, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		return engine(ctx, payloadString(msg, "query", "cash balance"), msg.Context)
	})
	s.Handle(messaging.IntentTopCash, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		limit := payloadInt(msg, "limit", 10)
		return engine(ctx, fmt.Sprintf("top %d households by cash balance", limit), msg.Context)
	})
	s.Handle(messaging.IntentRecon, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		return engine(ctx, "allocation mismatch analysis", msg.Context)
	})
	s.Handle(messaging.IntentMissingBen, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		return engine(ctx, "missing beneficiary information", msg.Context)
	})
	s.Handle(messaging.IntentRMD, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		days := payloadInt(msg, "days", 90)
		return engine(ctx, fmt.Sprintf("upcoming RMD deadlines within %d days", days), msg.Context)
	})
	s.Handle(messaging.IntentIRAReminder, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		return engine(ctx, "IRA contributions YTD zero", msg.Context)
	})

	return s, nil
}
