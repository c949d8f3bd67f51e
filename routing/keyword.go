package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/wealthops/advisory-mesh/messaging"
)

// DetectIntent scores the query against the table's keyword patterns
// and returns the highest-scoring intent. Matching is case-insensitive
// substring containment, one point per matched keyword. Ties break in
// favor of the intent declared earliest in the table; a query matching
// nothing falls back to ExecSummary, the broadest report.
func DetectIntent(table *Table, query string) messaging.Intent {
	lower := strings.ToLower(query)

	best := messaging.IntentExecSummary
	bestScore := 0
	for _, e := range table.Entries() {
		score := 0
		for _, keyword := range e.Keywords {
			if strings.Contains(lower, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = e.Intent
			bestScore = score
		}
	}
	return best
}

// KeywordRouter routes by deterministic keyword scoring against a
// routing table. It never fails.
type KeywordRouter struct {
	table *Table
}

// NewKeywordRouter creates a KeywordRouter. A nil table means the
// built-in default.
func NewKeywordRouter(table *Table) *KeywordRouter {
	if table == nil {
		table = DefaultTable()
	}
	return &KeywordRouter{table: table}
}

func (r *KeywordRouter) Route(ctx context.Context, query string) (Decision, error) {
	intent := DetectIntent(r.table, query)
	return Decision{
		Intent:    intent,
		Agents:    r.table.AgentsFor(intent),
		Reasoning: fmt.Sprintf("keyword match for %s", intent),
	}, nil
}
