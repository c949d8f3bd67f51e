package agents

import (
	"context"

	"github.com/wealthops/advisory-mesh/config"
	"github.com/wealthops/advisory-mesh/messaging"
	"github.com/wealthops/advisory-mesh/transport"
)

// SearchRequest is one canonical vector search.
type SearchRequest struct {
	Query    string
	TopK     int
	DaysBack int
	Scope    messaging.Context
}

// SearchEngine runs one hybrid search against the CRM notes index and
// returns hits as {"results": [...], ...}.
type SearchEngine func(ctx context.Context, req SearchRequest) (map[string]any, error)

// execSummaryQueries are the review themes an executive summary sweeps
// the CRM notes for.
var execSummaryQueries = []string{
	"performance review quarterly meeting client satisfaction",
	"risk assessment portfolio allocation changes recommendations",
	"tax planning strategies opportunities savings",
	"estate planning updates beneficiaries documents",
	"retirement planning projections income goals",
}

// NewVector creates the vector agent service over a search engine.
func NewVector(tr transport.Transport, cfg config.BrokerConfig, engine SearchEngine) (*Service, error) {
	s, err := NewService(messaging.AgentVector, tr, cfg)
	if err != nil {
		return nil, err
	}

	s.Handle(messaging.IntentCRMPOI, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		return engine(ctx, SearchRequest{
			Query: payloadString(msg, "query", "important points of interest"),
			TopK:  payloadInt(msg, "top_k", 5),
			Scope: msg.Context,
		})
	})

	s.Handle(messaging.IntentExecSummary, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		daysBack := payloadInt(msg, "days_back", 90)
		topK := payloadInt(msg, "top_k", 5)

		merged := make([]any, 0, len(execSummaryQueries)*topK)
		for _, query := range execSummaryQueries {
			result, err := engine(ctx, SearchRequest{
				Query:    query,
				TopK:     topK,
				DaysBack: daysBack,
				Scope:    msg.Context,
			})
			if err != nil {
				return nil, err
			}
			if hits, ok := result["results"].([]any); ok {
				merged = append(merged, hits...)
			}
		}
		return map[string]any{
			"results":     merged,
			"total_found": len(merged),
			"queries_run": len(execSummaryQueries),
		}, nil
	})

	return s, nil
}
