package server

import "github.com/tailored-agentic-units/converse/observability"

// Server event types.
const (
	EventListen    observability.EventType = "server.listen"
	EventCommand   observability.EventType = "server.command"
	EventFeedOpen  observability.EventType = "server.feed.open"
	EventFeedClose observability.EventType = "server.feed.close"
	EventFeedError observability.EventType = "server.feed.error"
)
