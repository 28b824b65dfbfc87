// Package gateway turns one user submission into exactly one remote
// chat-completion call and folds the outcome back into the session store.
//
// Only two conditions are reported to callers: session.ErrInvalidInput and
// session.ErrBusy. A missing credential and every remote failure become
// assistant messages in the conversation instead.
//
//	gw, err := gateway.New(store, &cfg)
//	err = gw.Submit(ctx, "hi")
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/converse/core/protocol"
	"github.com/tailored-agentic-units/converse/core/response"
	"github.com/tailored-agentic-units/converse/observability"
	"github.com/tailored-agentic-units/converse/session"
)

const (
	// UnconfiguredReply is appended instead of calling out when no
	// credential is set.
	UnconfiguredReply = "credential not configured"
	// ErrorReplyPrefix starts every assistant message that reports a failed
	// remote call.
	ErrorReplyPrefix = "an error occurred: "

	maxResponseBytes = 4 << 20
	maxErrorDetail   = 512
)

// Option configures a Gateway after config-driven initialization.
type Option func(*Gateway)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(g *Gateway) { g.observer = o }
}

// WithTokenCounter overrides the tokenizer used when CountTokens is enabled.
func WithTokenCounter(c TokenCounter) Option {
	return func(g *Gateway) { g.counter = c }
}

// Gateway performs completion requests on behalf of one session store.
type Gateway struct {
	store    session.Store
	cfg      Config
	client   *http.Client
	observer observability.Observer
	counter  TokenCounter

	// A tokenizer failure is reported once per gateway.
	tokenizerWarn sync.Once
}

// New creates a Gateway bound to store. The configuration is validated and
// copied; later changes to cfg have no effect.
func New(store session.Store, cfg *Config, opts ...Option) (*Gateway, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is nil", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Gateway{
		store:    store,
		cfg:      *cfg,
		client:   &http.Client{},
		observer: observability.NoOpObserver{},
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.cfg.CountTokens && g.counter == nil {
		g.counter = newLazyCounter(g.cfg.Encoding)
	}

	return g, nil
}

// Config returns the gateway's effective configuration.
func (g *Gateway) Config() Config {
	return g.cfg
}

// Submit accepts text and sends the resulting exchange. It returns only after
// the reply (or the error message standing in for it) has been appended and
// busy has been cleared. The only errors are session.ErrBusy and
// session.ErrInvalidInput.
func (g *Gateway) Submit(ctx context.Context, text string) error {
	ex, err := g.Accept(ctx, text)
	if err != nil {
		return err
	}
	ex.Send(ctx)
	return nil
}

// Accept performs the synchronous half of a submission: it rejects the text
// if the session is busy or the text is blank, otherwise appends the user
// message, marks the session busy and captures the context window. The
// returned Exchange must be sent; busy stays set until it is.
func (g *Gateway) Accept(ctx context.Context, text string) (*Exchange, error) {
	turn, err := g.store.Begin(text, g.cfg.ContextWindow)
	if err != nil {
		reason := "invalid_input"
		if errors.Is(err, session.ErrBusy) {
			reason = "busy"
		}
		g.emit(ctx, EventRejected, observability.LevelVerbose, map[string]any{
			"session_id": g.store.ID(),
			"reason":     reason,
		})
		return nil, err
	}

	window := make([]protocol.Message, 0, len(turn.Context))
	for _, m := range turn.Context {
		window = append(window, m.Wire())
	}

	return &Exchange{
		ID:         uuid.NewString(),
		Prompt:     turn.Prompt,
		gateway:    g,
		window:     window,
		credential: turn.Credential,
		configured: turn.Configured(),
	}, nil
}

// Exchange is one accepted submission waiting to be sent.
type Exchange struct {
	ID     string
	Prompt session.Message

	gateway    *Gateway
	window     []protocol.Message
	credential string
	configured bool

	once  sync.Once
	reply session.Message
}

// Context returns the role/content pairs that will be sent, oldest first.
func (e *Exchange) Context() []protocol.Message {
	return slices.Clone(e.window)
}

// Send performs the remote call and appends its outcome as an assistant
// message, clearing busy on every path. Once dispatched the call is not
// cancelled by ctx; it ends when the remote answers or the timeout expires.
// Calling Send again returns the first reply without another request.
func (e *Exchange) Send(ctx context.Context) session.Message {
	e.once.Do(func() {
		e.reply = e.gateway.send(ctx, e)
	})
	return e.reply
}

func (g *Gateway) send(ctx context.Context, ex *Exchange) (reply session.Message) {
	resolved := false
	defer func() {
		if !resolved {
			reply = g.store.Resolve(ErrorReplyPrefix + "request aborted")
		}
	}()

	if !ex.configured {
		g.emit(ctx, EventUnconfigured, observability.LevelInfo, map[string]any{
			"session_id": g.store.ID(),
			"request_id": ex.ID,
		})
		reply = g.store.Resolve(UnconfiguredReply)
		resolved = true
		return reply
	}

	requestData := map[string]any{
		"session_id":       g.store.ID(),
		"request_id":       ex.ID,
		"model":            g.cfg.Model,
		"context_messages": len(ex.window),
	}
	if g.counter != nil {
		if n, err := g.counter.Count(ex.window); err == nil {
			requestData["prompt_tokens"] = n
		} else {
			g.tokenizerWarn.Do(func() {
				g.emit(ctx, EventTokenizer, observability.LevelWarning, map[string]any{
					"error": err.Error(),
				})
			})
		}
	}
	g.emit(ctx, EventRequest, observability.LevelInfo, requestData)

	start := time.Now()
	resp, err := g.complete(ctx, ex.credential, ex.window)
	elapsed := time.Since(start)

	if err != nil {
		g.emit(ctx, EventFailure, observability.LevelWarning, map[string]any{
			"session_id":  g.store.ID(),
			"request_id":  ex.ID,
			"duration_ms": elapsed.Milliseconds(),
			"error":       err.Error(),
		})
		reply = g.store.Resolve(ErrorReplyPrefix + err.Error())
		resolved = true
		return reply
	}

	responseData := map[string]any{
		"session_id":   g.store.ID(),
		"request_id":   ex.ID,
		"duration_ms":  elapsed.Milliseconds(),
		"reply_length": len(resp.Content()),
	}
	if resp.Usage != nil {
		responseData["total_tokens"] = resp.Usage.TotalTokens
	}
	g.emit(ctx, EventResponse, observability.LevelInfo, responseData)

	reply = g.store.Resolve(resp.Content())
	resolved = true
	return reply
}

type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []protocol.Message `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

func (g *Gateway) complete(ctx context.Context, credential string, window []protocol.Message) (*response.ChatResponse, error) {
	body, err := json.Marshal(chatRequest{
		Model:       g.cfg.Model,
		Messages:    window,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.Timeout.Std())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := response.ErrorDetail(data, maxErrorDetail)
		if detail == "" {
			return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrStatus, resp.Status, detail)
	}

	return response.ParseChat(data)
}

func (g *Gateway) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	g.observer.OnEvent(ctx, observability.NewEvent("gateway", t, level, data))
}
