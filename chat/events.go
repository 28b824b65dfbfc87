package chat

import "github.com/tailored-agentic-units/converse/observability"

// Command event types emitted by Core.
const (
	EventSessionStart      observability.EventType = "chat.session.start"
	EventSubmit            observability.EventType = "chat.submit"
	EventCleared           observability.EventType = "chat.cleared"
	EventCredentialChanged observability.EventType = "chat.credential.changed"
)
