package broker

import "sync/atomic"

// MetricsSnapshot is a point-in-time copy of broker counters.
type MetricsSnapshot struct {
	Published     int64
	Received      int64
	Dispatched    int64
	Duplicates    int64
	HandlerErrors int64
}

// Metrics tracks broker activity with atomic counters.
type Metrics struct {
	published     atomic.Int64
	received      atomic.Int64
	dispatched    atomic.Int64
	duplicates    atomic.Int64
	handlerErrors atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordPublished(delta int) {
	m.published.Add(int64(delta))
}

func (m *Metrics) RecordReceived(delta int) {
	m.received.Add(int64(delta))
}

func (m *Metrics) RecordDispatched(delta int) {
	m.dispatched.Add(int64(delta))
}

func (m *Metrics) RecordDuplicate(delta int) {
	m.duplicates.Add(int64(delta))
}

func (m *Metrics) RecordHandlerError(delta int) {
	m.handlerErrors.Add(int64(delta))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Published:     m.published.Load(),
		Received:      m.received.Load(),
		Dispatched:    m.dispatched.Load(),
		Duplicates:    m.duplicates.Load(),
		HandlerErrors: m.handlerErrors.Load(),
	}
}
