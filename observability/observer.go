// Package observability carries structured events from the session core to
// whatever records them. Components build an Event and hand it to an
// Observer; the SlogObserver turns events into log records. Level values
// align with OpenTelemetry SeverityNumbers.
package observability

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// EventType names the kind of event. Each package declares its own
// constants, prefixed with the package name ("gateway.request",
// "server.feed.open").
type EventType string

// Event is one occurrence worth recording. Fields map to OTel LogRecord
// fields: Type→EventName, Level→SeverityNumber, Timestamp→Timestamp,
// Source→InstrumentationScope, Data→Attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// NewEvent stamps an event with the current time.
func NewEvent(source string, t EventType, level Level, data map[string]any) Event {
	return Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}

const redacted = "[REDACTED]"

// sensitiveKeys are Data keys whose values are never exposed as attributes.
var sensitiveKeys = []string{"credential", "authorization", "api_key", "token"}

// Attrs returns the event's source and data as slog attributes sorted by
// key. Values under credential-like keys are replaced with a placeholder.
func (e Event) Attrs() []slog.Attr {
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("source", e.Source))
	for _, k := range keys {
		if isSensitive(k) {
			attrs = append(attrs, slog.String(k, redacted))
			continue
		}
		attrs = append(attrs, slog.Any(k, e.Data[k]))
	}
	return attrs
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if lower == s || strings.HasSuffix(lower, "_"+s) {
			return true
		}
	}
	return false
}

// Observer receives events. Implementations must be safe for concurrent use.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}
