package orchestrate_test

import (
	"context"
	"strings"
	"testing"

	"github.com/wealthops/advisory-mesh/messaging"
	"github.com/wealthops/advisory-mesh/orchestrate"
)

func TestTextComposer_Compose(t *testing.T) {
	results := map[messaging.Agent]map[string]any{
		messaging.AgentNL2SQL: {
			"sql":  "SELECT household_id FROM balances",
			"rows": []any{"HH-001"},
		},
		messaging.AgentVector: {
			"results": []any{
				map[string]any{
					"id":       "note-17",
					"metadata": map[string]any{"author": "J. Rivera"},
				},
				map[string]any{"id": "note-18"},
			},
		},
		messaging.AgentAPI: {"performance": "qtd +2.1%"},
	}

	comp, err := orchestrate.TextComposer{}.Compose(
		context.Background(), messaging.IntentExecSummary, "executive summary", results,
	)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if comp.GeneratedSQL != "SELECT household_id FROM balances" {
		t.Errorf("GeneratedSQL = %q, want extracted sql", comp.GeneratedSQL)
	}
	for _, agent := range []string{"nl2sql", "vector", "api"} {
		if !strings.Contains(comp.Answer, "["+agent+"]") {
			t.Errorf("Answer missing %s section: %q", agent, comp.Answer)
		}
	}

	// Sections render in agent name order: api, nl2sql, vector.
	if len(comp.Citations) != 3 {
		t.Fatalf("len(Citations) = %d, want 1 API + 2 CRM", len(comp.Citations))
	}
	if comp.Citations[0].Source != "api:plan-performance" {
		t.Errorf("Citations[0].Source = %q, want API citation", comp.Citations[0].Source)
	}
	if comp.Citations[1].Source != "search:crm-notes:note-17" {
		t.Errorf("Citations[1].Source = %q", comp.Citations[1].Source)
	}
	if comp.Citations[1].Description != "CRM note by J. Rivera" {
		t.Errorf("Citations[1].Description = %q", comp.Citations[1].Description)
	}
	if comp.Citations[2].Description != "CRM note by Unknown" {
		t.Errorf("Citations[2].Description = %q, want unknown author", comp.Citations[2].Description)
	}
}

func TestTextComposer_EmptyResults(t *testing.T) {
	comp, err := orchestrate.TextComposer{}.Compose(
		context.Background(), messaging.IntentTopCash, "top cash", nil,
	)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !strings.Contains(comp.Answer, "No agent results") {
		t.Errorf("Answer = %q, want no-results text", comp.Answer)
	}
	if comp.Citations == nil {
		t.Error("Citations is nil, want empty slice")
	}
}
