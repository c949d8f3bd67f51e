package orchestrate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wealthops/advisory-mesh/messaging"
)

// QueryRequest is one advisor query entering the mesh.
type QueryRequest struct {
	Query       string         `json:"query"`
	HouseholdID string         `json:"household_id,omitempty"`
	AccountID   string         `json:"account_id,omitempty"`
	UserContext map[string]any `json:"user_context,omitempty"`
}

// Citation points a statement in the answer back to its source.
type Citation struct {
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
}

// QueryResponse is the final composed answer for one query.
type QueryResponse struct {
	Answer          string     `json:"answer"`
	Citations       []Citation `json:"citations"`
	SQLGenerated    string     `json:"sql_generated,omitempty"`
	ExecutionTimeMS int64      `json:"execution_time_ms"`
	AgentCalls      []string   `json:"agent_calls"`
}

// Composition is a Composer's contribution to the QueryResponse; the
// coordinator fills in timing and agent bookkeeping.
type Composition struct {
	Answer       string
	Citations    []Citation
	GeneratedSQL string
}

// Composer turns the fanned-out agent results into a single answer.
// Results only contains agents that succeeded; the composer must cope
// with any subset, including an empty one.
type Composer interface {
	Compose(
		ctx context.Context,
		intent messaging.Intent,
		query string,
		results map[messaging.Agent]map[string]any,
	) (Composition, error)
}

// TextComposer is a deterministic Composer that renders each agent's
// result as a labeled section. It extracts citations from vector
// search hits and the generated SQL from nl2sql results, and needs no
// model access.
type TextComposer struct{}

func (TextComposer) Compose(
	ctx context.Context,
	intent messaging.Intent,
	query string,
	results map[messaging.Agent]map[string]any,
) (Composition, error) {
	if len(results) == 0 {
		return Composition{
			Answer:    "No agent results are available for this query.",
			Citations: []Citation{},
		}, nil
	}

	agents := make([]messaging.Agent, 0, len(results))
	for agent := range results {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i] < agents[j] })

	comp := Composition{Citations: []Citation{}}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", intent)
	for _, agent := range agents {
		result := results[agent]
		fmt.Fprintf(&b, "\n[%s]\n", agent)
		writeResult(&b, result)

		switch agent {
		case messaging.AgentNL2SQL:
			if sql, ok := result["sql"].(string); ok {
				comp.GeneratedSQL = sql
			}
		case messaging.AgentVector:
			comp.Citations = append(comp.Citations, vectorCitations(result)...)
		case messaging.AgentAPI:
			comp.Citations = append(comp.Citations, Citation{
				Source:      "api:plan-performance",
				Description: "External API data (Plan Performance, Pershing)",
			})
		}
	}
	comp.Answer = strings.TrimSpace(b.String())
	return comp, nil
}

func writeResult(b *strings.Builder, result map[string]any) {
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s: %v\n", k, result[k])
	}
}

// vectorCitations lifts search hits shaped like
// {"results": [{"id": ..., "metadata": {"author": ...}}, ...]} into
// citations. Malformed entries are skipped.
func vectorCitations(result map[string]any) []Citation {
	hits, ok := result["results"].([]any)
	if !ok {
		return nil
	}
	citations := make([]Citation, 0, len(hits))
	for _, h := range hits {
		hit, ok := h.(map[string]any)
		if !ok {
			continue
		}
		id, _ := hit["id"].(string)
		if id == "" {
			id = "unknown"
		}
		author := "Unknown"
		if meta, ok := hit["metadata"].(map[string]any); ok {
			if a, ok := meta["author"].(string); ok && a != "" {
				author = a
			}
		}
		citations = append(citations, Citation{
			Source:      "search:crm-notes:" + id,
			Description: "CRM note by " + author,
		})
	}
	return citations
}
