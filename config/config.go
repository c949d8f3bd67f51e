// Package config holds initialization parameters for the mesh
// subsystems. Each config type follows the same pattern: a Default
// constructor, a Merge that applies non-zero overrides, and duration
// fields expressed in seconds so configs stay JSON-friendly.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Error policy names accepted by BrokerConfig.
const (
	PolicyAnswerAndAck    = "answer_and_ack"
	PolicyAbandonForRetry = "abandon_for_retry"
)

const (
	defaultSeenRetentionSeconds = 3600
	defaultAgentTimeoutSeconds  = 30
	defaultSessionCap           = 1024
	defaultSessionTTLSeconds    = 900
)

// BrokerConfig configures one agent's broker.
type BrokerConfig struct {
	// ErrorPolicy decides what happens when a handler fails:
	// answer_and_ack publishes an error response and acknowledges the
	// delivery; abandon_for_retry publishes nothing and abandons the
	// delivery so the transport redelivers it.
	ErrorPolicy string `json:"error_policy"`

	// SeenRetentionSeconds is the idempotency cache retention window.
	SeenRetentionSeconds int `json:"seen_retention_seconds"`

	// Observer names the observability observer ("noop", "slog", ...).
	Observer string `json:"observer"`

	// Logger receives broker logs. Not loadable from file.
	Logger *slog.Logger `json:"-"`
}

// DefaultBrokerConfig returns a BrokerConfig with sensible defaults.
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{
		ErrorPolicy:          PolicyAnswerAndAck,
		SeenRetentionSeconds: defaultSeenRetentionSeconds,
		Observer:             "slog",
		Logger:               slog.Default(),
	}
}

func (c *BrokerConfig) Merge(source *BrokerConfig) {
	if source.ErrorPolicy != "" {
		c.ErrorPolicy = source.ErrorPolicy
	}
	if source.SeenRetentionSeconds > 0 {
		c.SeenRetentionSeconds = source.SeenRetentionSeconds
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.Logger != nil {
		c.Logger = source.Logger
	}
}

// SeenRetention returns the idempotency retention window as a duration.
func (c *BrokerConfig) SeenRetention() time.Duration {
	return time.Duration(c.SeenRetentionSeconds) * time.Second
}

// CoordinatorConfig configures the orchestrator's fan-out.
type CoordinatorConfig struct {
	// AgentTimeoutSeconds bounds each fanned-out agent call.
	AgentTimeoutSeconds int `json:"agent_timeout_seconds"`

	// SessionCap bounds the number of retained session records.
	SessionCap int `json:"session_cap"`

	// SessionTTLSeconds evicts session records untouched this long.
	SessionTTLSeconds int `json:"session_ttl_seconds"`

	// Observer names the observability observer.
	Observer string `json:"observer"`

	// Logger receives coordinator logs. Not loadable from file.
	Logger *slog.Logger `json:"-"`
}

// DefaultCoordinatorConfig returns a CoordinatorConfig with sensible
// defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		AgentTimeoutSeconds: defaultAgentTimeoutSeconds,
		SessionCap:          defaultSessionCap,
		SessionTTLSeconds:   defaultSessionTTLSeconds,
		Observer:            "slog",
		Logger:              slog.Default(),
	}
}

func (c *CoordinatorConfig) Merge(source *CoordinatorConfig) {
	if source.AgentTimeoutSeconds > 0 {
		c.AgentTimeoutSeconds = source.AgentTimeoutSeconds
	}
	if source.SessionCap > 0 {
		c.SessionCap = source.SessionCap
	}
	if source.SessionTTLSeconds > 0 {
		c.SessionTTLSeconds = source.SessionTTLSeconds
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.Logger != nil {
		c.Logger = source.Logger
	}
}

// AgentTimeout returns the per-agent call budget as a duration.
func (c *CoordinatorConfig) AgentTimeout() time.Duration {
	return time.Duration(c.AgentTimeoutSeconds) * time.Second
}

// SessionTTL returns the session eviction window as a duration.
func (c *CoordinatorConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// RouterConfig configures intent routing strategy selection.
type RouterConfig struct {
	// Strategy selects the router: "keyword" or "llm". The llm strategy
	// always falls back to keyword scoring on provider or parse failure.
	Strategy string `json:"strategy"`

	// Model names the chat model used by the llm strategy.
	Model string `json:"model"`

	// TablePath optionally points at a YAML file overriding the
	// built-in keyword and agent routing tables.
	TablePath string `json:"table_path"`
}

// DefaultRouterConfig returns a RouterConfig using keyword routing.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Strategy: "keyword",
		Model:    "gpt-4o-mini",
	}
}

func (c *RouterConfig) Merge(source *RouterConfig) {
	if source.Strategy != "" {
		c.Strategy = source.Strategy
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.TablePath != "" {
		c.TablePath = source.TablePath
	}
}

// TransportConfig configures the in-memory bus.
type TransportConfig struct {
	BufferSize             int `json:"buffer_size"`
	MaxDeliveryCount       int `json:"max_delivery_count"`
	InitialRedeliveryMs    int `json:"initial_redelivery_ms"`
	MaxRedeliveryMs        int `json:"max_redelivery_ms"`
}

// DefaultTransportConfig returns a TransportConfig with sensible
// defaults.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		BufferSize:          100,
		MaxDeliveryCount:    5,
		InitialRedeliveryMs: 50,
		MaxRedeliveryMs:     2000,
	}
}

func (c *TransportConfig) Merge(source *TransportConfig) {
	if source.BufferSize > 0 {
		c.BufferSize = source.BufferSize
	}
	if source.MaxDeliveryCount > 0 {
		c.MaxDeliveryCount = source.MaxDeliveryCount
	}
	if source.InitialRedeliveryMs > 0 {
		c.InitialRedeliveryMs = source.InitialRedeliveryMs
	}
	if source.MaxRedeliveryMs > 0 {
		c.MaxRedeliveryMs = source.MaxRedeliveryMs
	}
}

// InitialRedeliveryDelay returns the initial backoff as a duration.
func (c *TransportConfig) InitialRedeliveryDelay() time.Duration {
	return time.Duration(c.InitialRedeliveryMs) * time.Millisecond
}

// MaxRedeliveryDelay returns the backoff cap as a duration.
func (c *TransportConfig) MaxRedeliveryDelay() time.Duration {
	return time.Duration(c.MaxRedeliveryMs) * time.Millisecond
}

// MeshConfig aggregates every subsystem config for the mesh binary.
type MeshConfig struct {
	Broker      BrokerConfig      `json:"broker"`
	Coordinator CoordinatorConfig `json:"coordinator"`
	Router      RouterConfig      `json:"router"`
	Transport   TransportConfig   `json:"transport"`
}

// DefaultMeshConfig returns a MeshConfig with every subsystem at its
// defaults.
func DefaultMeshConfig() MeshConfig {
	return MeshConfig{
		Broker:      DefaultBrokerConfig(),
		Coordinator: DefaultCoordinatorConfig(),
		Router:      DefaultRouterConfig(),
		Transport:   DefaultTransportConfig(),
	}
}

// Merge applies non-zero values from source, delegating to each
// subsystem's Merge.
func (c *MeshConfig) Merge(source *MeshConfig) {
	c.Broker.Merge(&source.Broker)
	c.Coordinator.Merge(&source.Coordinator)
	c.Router.Merge(&source.Router)
	c.Transport.Merge(&source.Transport)
}

// Load reads a JSON config file and merges it over the defaults.
func Load(filename string) (*MeshConfig, error) {
	cfg := DefaultMeshConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded MeshConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
