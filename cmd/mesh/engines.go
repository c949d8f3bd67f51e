package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wealthops/advisory-mesh/agents"
	"github.com/wealthops/advisory-mesh/messaging"
)

// Demo engines returning deterministic sample data, so the binary can
// exercise the full mesh without a database, search index, or external
// providers.

func demoSQLEngine() agents.SQLEngine {
	return func(ctx context.Context, query string, scope messaging.Context) (map[string]any, error) {
		rows := []any{
			map[string]any{"household_id": "HH-001", "name": "Alvarez Family", "cash_balance": 1250000.00},
			map[string]any{"household_id": "HH-014", "name": "Chen Household", "cash_balance": 987500.50},
			map[string]any{"household_id": "HH-032", "name": "Okafor Trust", "cash_balance": 845200.75},
		}
		if scope.HouseholdID != "" {
			rows = rows[:1]
		}
		return map[string]any{
			"sql":       fmt.Sprintf("-- generated for: %s\nSELECT household_id, name, cash_balance FROM Households", query),
			"results":   rows,
			"row_count": len(rows),
			"success":   true,
		}, nil
	}
}

func demoSearchEngine() agents.SearchEngine {
	notes := []any{
		map[string]any{
			"id":       "note-2041",
			"content":  "Client asked about increasing 529 contributions before year end.",
			"metadata": map[string]any{"author": "M. Delgado", "household_id": "HH-001"},
		},
		map[string]any{
			"id":       "note-2087",
			"content":  "Reviewed target allocation; client comfortable with current drift.",
			"metadata": map[string]any{"author": "S. Whitfield", "household_id": "HH-014"},
		},
	}
	return func(ctx context.Context, req agents.SearchRequest) (map[string]any, error) {
		hits := notes
		if req.TopK < len(hits) {
			hits = hits[:req.TopK]
		}
		return map[string]any{
			"query":       req.Query,
			"results":     hits,
			"total_found": len(hits),
		}, nil
	}
}

func demoPlanEngine() agents.PlanEngine {
	return func(ctx context.Context, req agents.PlanRequest) (map[string]any, error) {
		switch req.Kind {
		case agents.PlanPerformance:
			return map[string]any{
				"household_id": req.Scope.HouseholdID,
				"total_aum":    4250000.00,
				"performance_metrics": map[string]any{
					"ytd_return":   0.082,
					"qoq_return":   0.021,
					"trailing_12m": 0.114,
				},
				"last_updated": time.Now().UTC().Format(time.RFC3339),
			}, nil
		case agents.PlanReconciliation:
			return map[string]any{
				"household_id": req.Scope.HouseholdID,
				"household_summary": map[string]any{
					"total_aum":     4250000.00,
					"largest_drift": -0.043,
				},
				"account_details":      accountDetails(req.AccountIDs),
				"reconciliation_flags": []any{"cash_sweep_pending"},
				"last_updated":         time.Now().UTC().Format(time.RFC3339),
			}, nil
		}
		return nil, fmt.Errorf("unknown plan request kind: %q", req.Kind)
	}
}

func accountDetails(accountIDs []string) []any {
	if len(accountIDs) == 0 {
		accountIDs = []string{"AC-1001"}
	}
	details := make([]any, 0, len(accountIDs))
	for _, id := range accountIDs {
		details = append(details, map[string]any{
			"account_id":      id,
			"current_balance": 312500.00,
			"cash_available":  48200.00,
			"pending_trades":  strings.Count(id, "-"),
		})
	}
	return details
}
