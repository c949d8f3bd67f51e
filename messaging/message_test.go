package messaging_test

import (
	"testing"
	"time"

	"github.com/wealthops/advisory-mesh/messaging"
)

func TestNewMessage_Defaults(t *testing.T) {
	msg := messaging.NewMessage(
		messaging.AgentOrchestrator,
		messaging.IntentTopCash,
		messaging.AgentNL2SQL,
	).Build()

	if msg.Kind != messaging.KindRequest {
		t.Errorf("Kind = %v, want %v", msg.Kind, messaging.KindRequest)
	}
	if msg.MessageID == "" {
		t.Error("MessageID should not be empty")
	}
	if msg.CorrelationID == "" {
		t.Error("CorrelationID should not be empty")
	}
	if msg.MessageID == msg.CorrelationID {
		t.Error("MessageID and CorrelationID should be distinct")
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if msg.Status != messaging.StatusPending {
		t.Errorf("Status = %v, want %v", msg.Status, messaging.StatusPending)
	}
	if msg.FromAgent != messaging.AgentOrchestrator {
		t.Errorf("FromAgent = %v, want %v", msg.FromAgent, messaging.AgentOrchestrator)
	}
}

func TestNewMessage_UniqueMessageIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		msg := messaging.NewMessage(
			messaging.AgentOrchestrator,
			messaging.IntentTopCash,
			messaging.AgentNL2SQL,
		).Build()
		if seen[msg.MessageID] {
			t.Fatalf("duplicate MessageID generated: %s", msg.MessageID)
		}
		seen[msg.MessageID] = true
	}
}

func TestMessageBuilder_CorrelationID(t *testing.T) {
	msg := messaging.NewMessage(
		messaging.AgentOrchestrator,
		messaging.IntentRecon,
		messaging.AgentNL2SQL,
		messaging.AgentAPI,
	).CorrelationID("corr-123").Build()

	if msg.CorrelationID != "corr-123" {
		t.Errorf("CorrelationID = %v, want corr-123", msg.CorrelationID)
	}
	if len(msg.ToAgents) != 2 {
		t.Errorf("len(ToAgents) = %d, want 2", len(msg.ToAgents))
	}
}

func TestMessage_For(t *testing.T) {
	msg := messaging.NewMessage(
		messaging.AgentOrchestrator,
		messaging.IntentExecSummary,
		messaging.AgentNL2SQL,
		messaging.AgentVector,
	).Build()

	tests := []struct {
		agent messaging.Agent
		want  bool
	}{
		{messaging.AgentNL2SQL, true},
		{messaging.AgentVector, true},
		{messaging.AgentAPI, false},
		{messaging.AgentOrchestrator, false},
	}

	for _, tt := range tests {
		if got := msg.For(tt.agent); got != tt.want {
			t.Errorf("For(%s) = %v, want %v", tt.agent, got, tt.want)
		}
	}
}

func TestNewSuccess_CorrelationRoundTrip(t *testing.T) {
	req := messaging.NewMessage(
		messaging.AgentOrchestrator,
		messaging.IntentTopCash,
		messaging.AgentNL2SQL,
	).Build()

	resp := messaging.NewSuccess(messaging.AgentNL2SQL, req, map[string]any{"rows": 3})

	if resp.CorrelationID != req.CorrelationID {
		t.Errorf("CorrelationID = %v, want %v", resp.CorrelationID, req.CorrelationID)
	}
	if resp.MessageID == req.MessageID {
		t.Error("response MessageID must be fresh, not the request's")
	}
	if resp.ToAgent != req.FromAgent {
		t.Errorf("ToAgent = %v, want %v", resp.ToAgent, req.FromAgent)
	}
	if !resp.OK() {
		t.Error("OK() = false, want true")
	}
}

func TestNewError_EmptyResult(t *testing.T) {
	req := messaging.NewMessage(
		messaging.AgentOrchestrator,
		messaging.IntentRMD,
		messaging.AgentNL2SQL,
	).Build()

	resp := messaging.NewError(messaging.AgentNL2SQL, req, "query engine unavailable")

	if resp.Status != messaging.StatusError {
		t.Errorf("Status = %v, want %v", resp.Status, messaging.StatusError)
	}
	if len(resp.Result) != 0 {
		t.Errorf("Result should be empty on error, got %v", resp.Result)
	}
	if resp.Error != "query engine unavailable" {
		t.Errorf("Error = %q, want %q", resp.Error, "query engine unavailable")
	}
	if resp.OK() {
		t.Error("OK() = true, want false")
	}
}

func TestMessage_Clone(t *testing.T) {
	msg := messaging.NewMessage(
		messaging.AgentOrchestrator,
		messaging.IntentTopCash,
		messaging.AgentNL2SQL,
	).Payload(map[string]any{"limit": 10}).Build()

	clone := msg.Clone()
	clone.ToAgents[0] = messaging.AgentVector
	clone.Payload["limit"] = 99

	if msg.ToAgents[0] != messaging.AgentNL2SQL {
		t.Error("Clone() should not share the ToAgents slice")
	}
	if msg.Payload["limit"] != 10 {
		t.Error("Clone() should not share payload keys")
	}
}

func TestAgent_Valid(t *testing.T) {
	for _, agent := range messaging.Agents() {
		if !agent.Valid() {
			t.Errorf("Valid(%s) = false, want true", agent)
		}
	}
	if messaging.Agent("mainframe").Valid() {
		t.Error("Valid(mainframe) = true, want false")
	}
}

func TestMessage_TimestampUTC(t *testing.T) {
	msg := messaging.NewMessage(
		messaging.AgentOrchestrator,
		messaging.IntentTopCash,
		messaging.AgentNL2SQL,
	).Build()

	if zone, _ := msg.Timestamp.Zone(); zone != time.UTC.String() {
		t.Errorf("Timestamp zone = %v, want UTC", zone)
	}
}
