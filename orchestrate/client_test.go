package orchestrate_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wealthops/advisory-mesh/broker"
	"github.com/wealthops/advisory-mesh/config"
	"github.com/wealthops/advisory-mesh/messaging"
	"github.com/wealthops/advisory-mesh/orchestrate"
	"github.com/wealthops/advisory-mesh/transport/inmem"
)

func TestLocalClient(t *testing.T) {
	client := orchestrate.NewLocalClient()
	client.Register(messaging.AgentNL2SQL, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})

	msg := messaging.NewMessage(
		messaging.AgentOrchestrator, messaging.IntentTopCash, messaging.AgentNL2SQL,
	).Build()

	result, err := client.Query(context.Background(), messaging.AgentNL2SQL, msg)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if result["ok"] != true {
		t.Errorf("result = %v, want ok", result)
	}

	if _, err := client.Query(context.Background(), messaging.AgentVector, msg); !errors.Is(err, orchestrate.ErrAgentUnavailable) {
		t.Errorf("Query(unregistered) error = %v, want ErrAgentUnavailable", err)
	}
}

func TestBrokerClient_QueryOverTransport(t *testing.T) {
	bus := inmem.New(inmem.Config{})
	defer bus.Close()

	cfg := config.DefaultBrokerConfig()
	cfg.Observer = "noop"

	orchBroker, err := broker.New(messaging.AgentOrchestrator, bus, cfg)
	if err != nil {
		t.Fatalf("broker.New(orchestrator) error = %v", err)
	}
	sqlBroker, err := broker.New(messaging.AgentNL2SQL, bus, cfg)
	if err != nil {
		t.Fatalf("broker.New(nl2sql) error = %v", err)
	}

	sqlBroker.RegisterHandler(messaging.IntentTopCash, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		return map[string]any{"rows": []any{"HH-001"}}, nil
	})
	sqlBroker.RegisterHandler(messaging.IntentRecon, func(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
		return nil, errors.New("ledger mismatch")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orchBroker.Run(ctx)
	go sqlBroker.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := orchestrate.NewBrokerClient(orchBroker)

	msg := messaging.NewMessage(
		messaging.AgentOrchestrator, messaging.IntentTopCash, messaging.AgentNL2SQL,
	).Build()
	result, err := client.Query(ctx, messaging.AgentNL2SQL, msg)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if _, exists := result["rows"]; !exists {
		t.Errorf("result = %v, want rows", result)
	}

	// An error-status response surfaces as an error carrying the
	// agent's diagnostic.
	msg = messaging.NewMessage(
		messaging.AgentOrchestrator, messaging.IntentRecon, messaging.AgentNL2SQL,
	).Build()
	if _, err := client.Query(ctx, messaging.AgentNL2SQL, msg); err == nil || !strings.Contains(err.Error(), "ledger mismatch") {
		t.Errorf("Query() error = %v, want agent diagnostic", err)
	}
}

func TestBrokerClient_Timeout(t *testing.T) {
	bus := inmem.New(inmem.Config{})
	defer bus.Close()

	cfg := config.DefaultBrokerConfig()
	cfg.Observer = "noop"
	orchBroker, err := broker.New(messaging.AgentOrchestrator, bus, cfg)
	if err != nil {
		t.Fatalf("broker.New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orchBroker.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := orchestrate.NewBrokerClient(orchBroker)

	// Nobody subscribes as nl2sql, so the response never comes.
	callCtx, callCancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer callCancel()
	msg := messaging.NewMessage(
		messaging.AgentOrchestrator, messaging.IntentTopCash, messaging.AgentNL2SQL,
	).Build()
	if _, err := client.Query(callCtx, messaging.AgentNL2SQL, msg); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Query() error = %v, want deadline exceeded", err)
	}
}
