package broker

import "github.com/wealthops/advisory-mesh/observability"

const (
	EventPublish         observability.EventType = "broker.publish"
	EventPublishFailed   observability.EventType = "broker.publish.failed"
	EventDispatch        observability.EventType = "broker.dispatch"
	EventDuplicate       observability.EventType = "broker.duplicate"
	EventUnknownIntent   observability.EventType = "broker.unknown_intent"
	EventHandlerFailed   observability.EventType = "broker.handler.failed"
	EventResponseMatched observability.EventType = "broker.response.matched"
	EventResponseOrphan  observability.EventType = "broker.response.orphan"
)
