package gateway

import "github.com/tailored-agentic-units/converse/observability"

// Gateway event types.
const (
	EventRejected     observability.EventType = "gateway.rejected"
	EventUnconfigured observability.EventType = "gateway.unconfigured"
	EventRequest      observability.EventType = "gateway.request"
	EventResponse     observability.EventType = "gateway.response"
	EventFailure      observability.EventType = "gateway.failure"
	EventTokenizer    observability.EventType = "gateway.tokenizer.unavailable"
)
