package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/converse/observability"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  string
	}{
		{name: "trace range", level: 1, want: "TRACE"},
		{name: "verbose maps to DEBUG", level: observability.LevelVerbose, want: "DEBUG"},
		{name: "info maps to INFO", level: observability.LevelInfo, want: "INFO"},
		{name: "warning maps to WARN", level: observability.LevelWarning, want: "WARN"},
		{name: "error maps to ERROR", level: observability.LevelError, want: "ERROR"},
		{name: "fatal range", level: 21, want: "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  slog.Level
	}{
		{name: "verbose maps to Debug", level: observability.LevelVerbose, want: slog.LevelDebug},
		{name: "info maps to Info", level: observability.LevelInfo, want: slog.LevelInfo},
		{name: "warning maps to Warn", level: observability.LevelWarning, want: slog.LevelWarn},
		{name: "error maps to Error", level: observability.LevelError, want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.SlogLevel(); got != tt.want {
				t.Errorf("Level(%d).SlogLevel() = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    observability.Level
		wantErr bool
	}{
		{name: "debug", want: observability.LevelVerbose},
		{name: "Verbose", want: observability.LevelVerbose},
		{name: "", want: observability.LevelInfo},
		{name: " INFO ", want: observability.LevelInfo},
		{name: "warn", want: observability.LevelWarning},
		{name: "warning", want: observability.LevelWarning},
		{name: "error", want: observability.LevelError},
		{name: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := observability.ParseLevel(tt.name)
			if tt.wantErr {
				if !errors.Is(err, observability.ErrUnknownLevel) {
					t.Errorf("ParseLevel(%q) error = %v, want ErrUnknownLevel", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now()
	e := observability.NewEvent("gateway", "gateway.request", observability.LevelInfo, map[string]any{"model": "m"})

	if e.Source != "gateway" || e.Type != "gateway.request" || e.Level != observability.LevelInfo {
		t.Errorf("got %+v", e)
	}
	if e.Timestamp.Before(before) {
		t.Errorf("Timestamp %v before %v", e.Timestamp, before)
	}
}

func TestEvent_Attrs(t *testing.T) {
	e := observability.Event{
		Source: "chat",
		Data: map[string]any{
			"zeta":       1,
			"alpha":      "a",
			"credential": "sk-secret",
		},
	}

	attrs := e.Attrs()
	var keys []string
	for _, a := range attrs {
		keys = append(keys, a.Key)
		if strings.Contains(a.Value.String(), "sk-secret") {
			t.Errorf("attr %s leaked credential", a.Key)
		}
	}

	want := []string{"source", "alpha", "credential", "zeta"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestNoOpObserver(t *testing.T) {
	obs := observability.NoOpObserver{}
	obs.OnEvent(context.Background(), observability.Event{
		Type:      "test.event",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "test",
		Data:      map[string]any{"key": "value"},
	})
}

func TestCombine(t *testing.T) {
	first := &observability.Recorder{}
	second := &observability.Recorder{}

	multi := observability.Combine(first, nil, second)
	multi.OnEvent(context.Background(), observability.Event{
		Type:  "test.event",
		Level: observability.LevelInfo,
	})

	if len(first.Events()) != 1 {
		t.Errorf("observer 1 received %d events, want 1", len(first.Events()))
	}
	if len(second.Events()) != 1 {
		t.Errorf("observer 2 received %d events, want 1", len(second.Events()))
	}
}

func TestCombine_Collapses(t *testing.T) {
	if _, ok := observability.Combine().(observability.NoOpObserver); !ok {
		t.Error("Combine() should return NoOpObserver")
	}
	if _, ok := observability.Combine(nil, nil).(observability.NoOpObserver); !ok {
		t.Error("Combine(nil, nil) should return NoOpObserver")
	}

	rec := &observability.Recorder{}
	if got := observability.Combine(nil, rec); got != observability.Observer(rec) {
		t.Error("Combine with a single observer should return it unchanged")
	}
}

func TestSlogObserver_LevelMapping(t *testing.T) {
	tests := []struct {
		name      string
		level     observability.Level
		minLevel  slog.Level
		expectLog bool
	}{
		{name: "verbose at debug handler", level: observability.LevelVerbose, minLevel: slog.LevelDebug, expectLog: true},
		{name: "verbose at info handler", level: observability.LevelVerbose, minLevel: slog.LevelInfo, expectLog: false},
		{name: "info at info handler", level: observability.LevelInfo, minLevel: slog.LevelInfo, expectLog: true},
		{name: "info at warn handler", level: observability.LevelInfo, minLevel: slog.LevelWarn, expectLog: false},
		{name: "warning at warn handler", level: observability.LevelWarning, minLevel: slog.LevelWarn, expectLog: true},
		{name: "error at error handler", level: observability.LevelError, minLevel: slog.LevelError, expectLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
				Level: tt.minLevel,
			}))

			obs := observability.NewSlogObserver(logger)
			obs.OnEvent(context.Background(), observability.Event{
				Type:      "test.event",
				Level:     tt.level,
				Timestamp: time.Now(),
				Source:    "test",
			})

			hasOutput := buf.Len() > 0
			if hasOutput != tt.expectLog {
				t.Errorf("log output = %v, want %v (buf: %q)", hasOutput, tt.expectLog, buf.String())
			}
		})
	}
}

func TestSlogObserver_EventTypeAsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	obs := observability.NewSlogObserver(logger)
	obs.OnEvent(context.Background(), observability.Event{
		Type:      "gateway.request",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "gateway.Send",
		Data: map[string]any{
			"context_messages": 3,
		},
	})

	output := buf.String()
	if !strings.Contains(output, "gateway.request") {
		t.Errorf("expected event type as log message, got: %s", output)
	}
	if !strings.Contains(output, "source=gateway.Send") {
		t.Errorf("expected source attribute, got: %s", output)
	}
	if !strings.Contains(output, "context_messages=3") {
		t.Errorf("expected data attributes, got: %s", output)
	}
}

func TestSlogObserver_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	obs := observability.NewSlogObserver(logger)
	obs.OnEvent(context.Background(), observability.Event{
		Type:  "test.event",
		Level: observability.LevelInfo,
		Data: map[string]any{
			"credential":     "sk-secret",
			"Authorization":  "Bearer sk-secret",
			"remote_api_key": "sk-secret",
			"tokens":         12,
		},
	})

	output := buf.String()
	if strings.Contains(output, "sk-secret") {
		t.Errorf("credential leaked into log output: %s", output)
	}
	if !strings.Contains(output, "tokens=12") {
		t.Errorf("non-sensitive attribute should be kept, got: %s", output)
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	rec := &observability.Recorder{}
	const n = 50

	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			rec.OnEvent(context.Background(), observability.Event{Type: "a"})
		}()
	}
	wg.Wait()
	rec.OnEvent(context.Background(), observability.Event{Type: "b"})

	if len(rec.Events()) != n+1 {
		t.Errorf("got %d events, want %d", len(rec.Events()), n+1)
	}
	if len(rec.OfType("b")) != 1 {
		t.Errorf("got %d events of type b, want 1", len(rec.OfType("b")))
	}
}

func TestRegistry_GetObserver(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "noop exists", key: "noop", wantErr: false},
		{name: "slog exists", key: "slog", wantErr: false},
		{name: "unknown fails", key: "nonexistent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := observability.GetObserver(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetObserver(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, observability.ErrUnknownObserver) {
				t.Errorf("GetObserver(%q) error = %v, want ErrUnknownObserver", tt.key, err)
			}
			if !tt.wantErr && obs == nil {
				t.Errorf("GetObserver(%q) returned nil observer", tt.key)
			}
		})
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	custom := &observability.Recorder{}
	observability.RegisterObserver("test-custom", custom)

	obs, err := observability.GetObserver("test-custom")
	if err != nil {
		t.Fatalf("GetObserver failed: %v", err)
	}

	obs.OnEvent(context.Background(), observability.Event{
		Type:  "test.event",
		Level: observability.LevelInfo,
	})

	if len(custom.Events()) != 1 {
		t.Errorf("received %d events, want 1", len(custom.Events()))
	}

	found := false
	for _, name := range observability.ObserverNames() {
		if name == "test-custom" {
			found = true
		}
	}
	if !found {
		t.Error("ObserverNames should include registered observer")
	}
}
