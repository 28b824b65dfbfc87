// Package chat is the command surface of one conversation. A Core owns a
// session store and the completion gateway bound to it, and translates the
// commands a presentation layer issues (input changed, submit, credential
// changed, clear) into store and gateway operations.
//
// The core initializes from configuration via New. Functional options allow
// tests to override the store, the observer, or gateway collaborators.
//
//	core, err := chat.New(&cfg)
//	core.OnInputChanged("hello")
//	err = core.OnSubmit(ctx)
package chat

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/converse/gateway"
	"github.com/tailored-agentic-units/converse/observability"
	"github.com/tailored-agentic-units/converse/prompts"
	"github.com/tailored-agentic-units/converse/session"
)

// Option configures a Core before its gateway is bound.
type Option func(*Core)

// WithStore overrides the config-created session store.
func WithStore(s session.Store) Option {
	return func(c *Core) { c.store = s }
}

// WithObserver overrides the observer named in the configuration.
func WithObserver(o observability.Observer) Option {
	return func(c *Core) { c.observer = o }
}

// WithCatalog overrides the config-created prompt catalog.
func WithCatalog(cat *prompts.Catalog) Option {
	return func(c *Core) { c.catalog = cat }
}

// WithGatewayOptions passes additional options to the gateway, applied after
// the core's own observer.
func WithGatewayOptions(opts ...gateway.Option) Option {
	return func(c *Core) { c.gatewayOpts = append(c.gatewayOpts, opts...) }
}

// Core is the session core for a single conversation.
type Core struct {
	store       session.Store
	gateway     *gateway.Gateway
	observer    observability.Observer
	catalog     *prompts.Catalog
	gatewayOpts []gateway.Option
}

// New creates a Core from configuration. The store is created from the
// session section, the observer is looked up by name, and the gateway is
// bound to the resulting store. A configured credential seeds the store.
func New(cfg *Config, opts ...Option) (*Core, error) {
	store, err := session.New(&cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	c := &Core{store: store}

	for _, opt := range opts {
		opt(c)
	}

	if c.observer == nil {
		name := cfg.Observer
		if name == "" {
			name = defaultObserver
		}
		obs, err := observability.GetObserver(name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		c.observer = obs
	}

	if c.catalog == nil {
		c.catalog = prompts.NewCatalog(prompts.NewStore(&cfg.Prompts))
		if err := c.catalog.Load(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}
	}

	gwOpts := append([]gateway.Option{gateway.WithObserver(c.observer)}, c.gatewayOpts...)
	gw, err := gateway.New(c.store, &cfg.Gateway, gwOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	c.gateway = gw

	if cfg.Credential != "" {
		c.store.SetCredential(cfg.Credential)
	}

	c.emit(context.Background(), EventSessionStart, observability.LevelInfo, map[string]any{
		"session_id": c.store.ID(),
		"endpoint":   gw.Config().Endpoint,
		"model":      gw.Config().Model,
	})

	return c, nil
}

// SessionID returns the identifier of the owned session.
func (c *Core) SessionID() string {
	return c.store.ID()
}

// Gateway returns the gateway bound to the core's store.
func (c *Core) Gateway() *gateway.Gateway {
	return c.gateway
}

// PendingInput returns the staged, not yet submitted text.
func (c *Core) PendingInput() string {
	return c.store.PendingInput()
}

// OnInputChanged stages text as the pending input. It never touches the log.
func (c *Core) OnInputChanged(text string) {
	c.store.SetPendingInput(text)
}

// OnExample stages an example as the pending input so the next submit sends
// it. A name known to the prompt catalog stages that prompt's text; any other
// text is staged as given.
func (c *Core) OnExample(text string) {
	if prompt, ok := c.catalog.Get(text); ok {
		text = prompt
	}
	c.store.SetPendingInput(text)
}

// Examples lists the prompts OnExample accepts by name.
func (c *Core) Examples() []prompts.Prompt {
	return c.catalog.Prompts()
}

// OnSubmit submits the pending input. On acceptance the pending input is
// cleared before the remote call starts, unless it was replaced while the
// submission was being accepted; on rejection it is kept and
// session.ErrBusy or session.ErrInvalidInput is returned. OnSubmit returns
// once the reply, or the message standing in for it, has been appended.
func (c *Core) OnSubmit(ctx context.Context) error {
	text := c.store.PendingInput()
	ex, err := c.gateway.Accept(ctx, text)
	if err != nil {
		return err
	}
	c.store.ClearPendingInputIf(text)

	c.emit(ctx, EventSubmit, observability.LevelVerbose, map[string]any{
		"session_id":  c.store.ID(),
		"exchange_id": ex.ID,
		"sequence":    ex.Prompt.Sequence,
	})

	ex.Send(ctx)
	return nil
}

// OnCredentialChanged replaces the credential used for subsequent requests.
// An empty string removes it.
func (c *Core) OnCredentialChanged(text string) {
	c.store.SetCredential(text)
	_, configured := c.store.Credential()

	c.emit(context.Background(), EventCredentialChanged, observability.LevelInfo, map[string]any{
		"session_id": c.store.ID(),
		"configured": configured,
	})
}

// OnClear empties the message log. The session identity, credential and
// pending input are kept, and an in-flight request still lands its reply.
func (c *Core) OnClear() {
	c.store.Clear()

	c.emit(context.Background(), EventCleared, observability.LevelInfo, map[string]any{
		"session_id": c.store.ID(),
	})
}

// Snapshot returns the current observable state.
func (c *Core) Snapshot() session.Snapshot {
	return c.store.Snapshot()
}

// Subscribe registers fn to receive a snapshot after every mutation and
// returns a function that removes it.
func (c *Core) Subscribe(fn session.Listener) func() {
	return c.store.Subscribe(fn)
}

func (c *Core) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	c.observer.OnEvent(ctx, observability.NewEvent("chat", t, level, data))
}
