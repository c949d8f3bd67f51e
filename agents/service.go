package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wealthops/advisory-mesh/broker"
	"github.com/wealthops/advisory-mesh/config"
	"github.com/wealthops/advisory-mesh/messaging"
	"github.com/wealthops/advisory-mesh/transport"
)

// Service is one agent's mesh endpoint: a broker plus the intent
// handlers registered on it.
type Service struct {
	broker  *broker.Broker
	logger  *slog.Logger
	engines map[messaging.Intent]broker.HandlerFunc
}

// NewService creates a Service listening as the given agent identity.
func NewService(agent messaging.Agent, tr transport.Transport, cfg config.BrokerConfig) (*Service, error) {
	b, err := broker.New(agent, tr, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s broker: %w", agent, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		broker:  b,
		logger:  logger,
		engines: make(map[messaging.Intent]broker.HandlerFunc),
	}, nil
}

// Agent returns the identity this service answers as.
func (s *Service) Agent() messaging.Agent {
	return s.broker.Agent()
}

// Broker exposes the underlying broker.
func (s *Service) Broker() *broker.Broker {
	return s.broker
}

// Handle registers an intent handler on both the broker and the
// direct-dispatch table.
func (s *Service) Handle(intent messaging.Intent, fn broker.HandlerFunc) {
	s.engines[intent] = fn
	s.broker.RegisterHandler(intent, fn)
}

// Intents returns the intents this service handles.
func (s *Service) Intents() []messaging.Intent {
	return s.broker.Intents()
}

// Direct invokes the handler for msg's intent in-process, bypassing
// the transport. It backs LocalClient wiring in single-binary
// deployments and tests.
func (s *Service) Direct(ctx context.Context, msg *messaging.Message) (map[string]any, error) {
	fn, exists := s.engines[msg.Intent]
	if !exists {
		return nil, fmt.Errorf("no handler for intent: %s", msg.Intent)
	}
	return fn(ctx, msg)
}

// Run starts the broker receive loop and blocks until ctx is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info(
		"agent service starting",
		slog.String("agent", s.Agent().String()),
		slog.Int("intents", len(s.engines)),
	)
	return s.broker.Run(ctx)
}

// Close releases the service's transport resources.
func (s *Service) Close() error {
	return s.broker.Close()
}

// payloadString reads a string payload field with a default.
func payloadString(msg *messaging.Message, key, fallback string) string {
	if v, ok := msg.Payload[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// payloadInt reads a numeric payload field with a default. JSON
// decoding delivers numbers as float64, direct dispatch as int; both
// are accepted.
func payloadInt(msg *messaging.Message, key string, fallback int) int {
	switch v := msg.Payload[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}
