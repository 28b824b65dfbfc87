// Package server exposes a session core over the network: unary Connect RPC
// procedures for the inbound commands and a WebSocket feed that pushes a
// snapshot after every change.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/converse/observability"
	"github.com/tailored-agentic-units/converse/prompts"
	"github.com/tailored-agentic-units/converse/session"
)

// ServiceName is the fully-qualified Connect service name.
const ServiceName = "converse.v1.ChatService"

// Procedure paths served by Handler.
const (
	SetInputProcedure      = "/" + ServiceName + "/SetInput"
	SubmitProcedure        = "/" + ServiceName + "/Submit"
	SetCredentialProcedure = "/" + ServiceName + "/SetCredential"
	ClearProcedure         = "/" + ServiceName + "/Clear"
	UseExampleProcedure    = "/" + ServiceName + "/UseExample"
	GetSnapshotProcedure   = "/" + ServiceName + "/GetSnapshot"
	ListExamplesProcedure  = "/" + ServiceName + "/ListExamples"

	FeedPath   = "/v1/feed"
	HealthPath = "/healthz"
)

// SetInput, SetCredential and UseExample take their text as a
// google.protobuf.StringValue and reply with google.protobuf.Empty. The
// argument-free procedures take google.protobuf.Empty.

// Core is the command surface the server drives. *chat.Core satisfies it.
type Core interface {
	SessionID() string
	OnInputChanged(text string)
	OnSubmit(ctx context.Context) error
	OnCredentialChanged(text string)
	OnClear()
	OnExample(text string)
	Examples() []prompts.Prompt
	Snapshot() session.Snapshot
	Subscribe(fn session.Listener) func()
}

// ExamplesResponse lists the prompts UseExample accepts by name.
type ExamplesResponse struct {
	Examples []prompts.Prompt `json:"examples"`
}

// Option configures a Server.
type Option func(*Server)

// WithObserver sets the observer for server events.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// Server serves one Core.
type Server struct {
	core     Core
	cfg      Config
	observer observability.Observer
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New creates a Server for core. Zero-valued config fields take defaults.
func New(core Core, cfg *Config, opts ...Option) *Server {
	c := DefaultConfig()
	if cfg != nil {
		c.Merge(cfg)
	}

	s := &Server{
		core:     core,
		cfg:      c,
		observer: observability.NoOpObserver{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	codec := connect.WithCodec(jsonCodec{})

	s.mux.Handle(SetInputProcedure, connect.NewUnaryHandler(SetInputProcedure,
		s.text("SetInput", s.core.OnInputChanged), codec))
	s.mux.Handle(SetCredentialProcedure, connect.NewUnaryHandler(SetCredentialProcedure,
		s.text("SetCredential", s.core.OnCredentialChanged), codec))
	s.mux.Handle(UseExampleProcedure, connect.NewUnaryHandler(UseExampleProcedure,
		s.text("UseExample", s.core.OnExample), codec))
	s.mux.Handle(SubmitProcedure, connect.NewUnaryHandler(SubmitProcedure, s.submit, codec))
	s.mux.Handle(ClearProcedure, connect.NewUnaryHandler(ClearProcedure, s.clear, codec))
	s.mux.Handle(GetSnapshotProcedure, connect.NewUnaryHandler(GetSnapshotProcedure, s.snapshot, codec))
	s.mux.Handle(ListExamplesProcedure, connect.NewUnaryHandler(ListExamplesProcedure, s.examples, codec))

	s.mux.HandleFunc(FeedPath, s.handleFeed)
	s.mux.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.emit(ctx, EventListen, observability.LevelInfo, map[string]any{
		"addr":       ln.Addr().String(),
		"session_id": s.core.SessionID(),
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) text(name string, apply func(string)) func(context.Context, *connect.Request[wrapperspb.StringValue]) (*connect.Response[emptypb.Empty], error) {
	return func(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[emptypb.Empty], error) {
		apply(req.Msg.GetValue())
		s.emit(ctx, EventCommand, observability.LevelVerbose, map[string]any{
			"procedure":  name,
			"session_id": s.core.SessionID(),
		})
		return connect.NewResponse(&emptypb.Empty{}), nil
	}
}

func (s *Server) submit(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[session.Snapshot], error) {
	err := s.core.OnSubmit(ctx)
	s.emit(ctx, EventCommand, observability.LevelVerbose, map[string]any{
		"procedure":  "Submit",
		"session_id": s.core.SessionID(),
		"accepted":   err == nil,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	snap := s.core.Snapshot()
	return connect.NewResponse(&snap), nil
}

func (s *Server) clear(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[session.Snapshot], error) {
	s.core.OnClear()
	snap := s.core.Snapshot()
	return connect.NewResponse(&snap), nil
}

func (s *Server) snapshot(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[session.Snapshot], error) {
	snap := s.core.Snapshot()
	return connect.NewResponse(&snap), nil
}

func (s *Server) examples(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[ExamplesResponse], error) {
	return connect.NewResponse(&ExamplesResponse{Examples: s.core.Examples()}), nil
}

// toConnectError maps command rejections onto Connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, session.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, session.ErrBusy):
		return connect.NewError(connect.CodeAborted, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func (s *Server) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	s.observer.OnEvent(ctx, observability.NewEvent("server", t, level, data))
}
