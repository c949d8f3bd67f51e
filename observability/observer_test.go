package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/wealthops/advisory-mesh/observability"
)

type captureObserver struct {
	events []observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	c.events = append(c.events, event)
}

func TestLevel_SlogMapping(t *testing.T) {
	tests := []struct {
		level observability.Level
		want  slog.Level
	}{
		{observability.LevelVerbose, slog.LevelDebug},
		{observability.LevelInfo, slog.LevelInfo},
		{observability.LevelWarning, slog.LevelWarn},
		{observability.LevelError, slog.LevelError},
	}

	for _, tt := range tests {
		if got := tt.level.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSlogObserver_EmitsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := observability.NewSlogObserver(logger)

	obs.OnEvent(context.Background(), observability.Event{
		Type:      "broker.dispatch",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "broker.Run",
		Data:      map[string]any{"intent": "TopCash"},
	})

	out := buf.String()
	if !strings.Contains(out, "broker.dispatch") {
		t.Errorf("output missing event type: %s", out)
	}
	if !strings.Contains(out, "intent=TopCash") {
		t.Errorf("output missing data attribute: %s", out)
	}
	if !strings.Contains(out, "source=broker.Run") {
		t.Errorf("output missing source attribute: %s", out)
	}
}

func TestMultiObserver_FanOut(t *testing.T) {
	first := &captureObserver{}
	second := &captureObserver{}
	multi := observability.NewMultiObserver(first, nil, second)

	multi.OnEvent(context.Background(), observability.Event{Type: "coordinator.fanout.start"})

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Errorf("events = (%d, %d), want (1, 1)", len(first.events), len(second.events))
	}
}

func TestGetObserver(t *testing.T) {
	if _, err := observability.GetObserver("noop"); err != nil {
		t.Errorf("GetObserver(noop) error = %v", err)
	}
	if _, err := observability.GetObserver("slog"); err != nil {
		t.Errorf("GetObserver(slog) error = %v", err)
	}
	if _, err := observability.GetObserver("zipkin"); err == nil {
		t.Error("GetObserver(zipkin) error = nil, want error")
	}

	capture := &captureObserver{}
	observability.RegisterObserver("capture", capture)
	got, err := observability.GetObserver("capture")
	if err != nil {
		t.Fatalf("GetObserver(capture) error = %v", err)
	}
	if got != capture {
		t.Error("GetObserver(capture) did not return registered observer")
	}
}
