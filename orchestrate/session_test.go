package orchestrate_test

import (
	"testing"
	"time"

	"github.com/wealthops/advisory-mesh/messaging"
	"github.com/wealthops/advisory-mesh/orchestrate"
)

func TestSessionStore_Lifecycle(t *testing.T) {
	store := orchestrate.NewSessionStore(8, time.Minute)

	store.Begin("corr-1", "top cash balances", messaging.IntentTopCash)
	store.RecordResult("corr-1", messaging.AgentNL2SQL, map[string]any{"rows": 3})
	store.RecordFailure("corr-1", messaging.AgentVector, "timeout")
	store.Finish("corr-1", orchestrate.SessionComplete)

	sess, exists := store.Get("corr-1")
	if !exists {
		t.Fatal("Get(corr-1) = false, want true")
	}
	if sess.Status != orchestrate.SessionComplete {
		t.Errorf("Status = %v, want complete", sess.Status)
	}
	if sess.Results[messaging.AgentNL2SQL]["rows"] != 3 {
		t.Errorf("Results = %v, want nl2sql rows", sess.Results)
	}
	if sess.Failures[messaging.AgentVector] != "timeout" {
		t.Errorf("Failures = %v, want vector timeout", sess.Failures)
	}
	if sess.EndedAt.IsZero() {
		t.Error("EndedAt is zero after Finish")
	}
}

func TestSessionStore_GetReturnsCopy(t *testing.T) {
	store := orchestrate.NewSessionStore(8, time.Minute)
	store.Begin("corr-1", "q", messaging.IntentTopCash)

	sess, _ := store.Get("corr-1")
	sess.Results[messaging.AgentAPI] = map[string]any{"injected": true}

	fresh, _ := store.Get("corr-1")
	if _, exists := fresh.Results[messaging.AgentAPI]; exists {
		t.Error("mutating a Get() copy leaked into the store")
	}
}

func TestSessionStore_CapacityEviction(t *testing.T) {
	store := orchestrate.NewSessionStore(2, time.Minute)

	store.Begin("corr-1", "a", messaging.IntentTopCash)
	store.Begin("corr-2", "b", messaging.IntentRMD)
	store.Begin("corr-3", "c", messaging.IntentRecon)

	if got := store.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2 after exceeding capacity", got)
	}
	if _, exists := store.Get("corr-1"); exists {
		t.Error("oldest session survived past capacity")
	}
	if _, exists := store.Get("corr-3"); !exists {
		t.Error("newest session evicted")
	}
}

func TestSessionStore_MissingAndDrain(t *testing.T) {
	store := orchestrate.NewSessionStore(8, time.Minute)

	if _, exists := store.Get("nope"); exists {
		t.Error("Get(nope) = true, want false")
	}
	// Writes against unknown correlation ids are ignored.
	store.RecordResult("nope", messaging.AgentNL2SQL, map[string]any{})
	store.Finish("nope", orchestrate.SessionComplete)

	store.Begin("corr-1", "a", messaging.IntentTopCash)
	store.Begin("corr-2", "b", messaging.IntentRMD)

	drained := store.Drain()
	if len(drained) != 2 {
		t.Fatalf("Drain() returned %d, want 2", len(drained))
	}
	if store.Len() != 0 {
		t.Errorf("Len() after Drain = %d, want 0", store.Len())
	}
}
