// converse is a terminal chat client for an OpenAI-compatible completion
// endpoint. It runs in one of three modes:
//
//	converse                      interactive session in this terminal
//	converse --serve              serve the session over Connect RPC and WebSocket
//	converse --remote <url>       interactive session driving a running server
//
// The credential is read from CONVERSE_API_KEY, the config file, or the
// /key command.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tailored-agentic-units/converse/chat"
	"github.com/tailored-agentic-units/converse/gateway"
	"github.com/tailored-agentic-units/converse/observability"
	"github.com/tailored-agentic-units/converse/server"
)

const credentialEnv = "CONVERSE_API_KEY"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		endpoint   string
		model      string
		window     int
		timeout    string
		listen     string
		remote     string
		serve      bool
		verbose    bool
		logLevel   string
		logOutput  string
	)

	flagSet := pflag.NewFlagSet("converse", pflag.ContinueOnError)
	flagSet.StringVarP(&configFile, "config", "c", "", "path to a JSON, JSONC or YAML config file")
	flagSet.StringVar(&endpoint, "endpoint", "", "chat completions URL (overrides config)")
	flagSet.StringVar(&model, "model", "", "model name (overrides config)")
	flagSet.IntVar(&window, "window", 0, "number of recent messages sent as context (overrides config)")
	flagSet.StringVar(&timeout, "timeout", "", "request timeout, e.g. 45s (overrides config)")
	flagSet.BoolVar(&serve, "serve", false, "serve the session instead of reading the terminal")
	flagSet.StringVar(&listen, "listen", "", "address to serve on (overrides config)")
	flagSet.StringVar(&remote, "remote", "", "drive the session served at this base URL")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging to stderr (same as --log-level debug)")
	flagSet.StringVar(&logLevel, "log-level", "info", "minimum level logged to stderr: debug, info, warn, error")
	flagSet.StringVar(&logOutput, "log-output", "", "also write JSON log records to this file")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if serve && remote != "" {
		return errors.New("--serve and --remote are mutually exclusive")
	}

	cfg := chat.DefaultConfig()
	if configFile != "" {
		loaded, err := chat.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	overrides := chat.Config{
		Gateway: gateway.Config{Endpoint: endpoint, Model: model, ContextWindow: window},
		Server:  server.Config{Addr: listen},
	}
	if timeout != "" {
		if err := overrides.Gateway.Timeout.UnmarshalText([]byte(timeout)); err != nil {
			return err
		}
	}
	cfg.Merge(&overrides)

	if key := os.Getenv(credentialEnv); key != "" {
		cfg.Credential = key
	}

	if verbose {
		logLevel = "debug"
	}
	level, err := observability.ParseLevel(logLevel)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level.SlogLevel()}))
	slog.SetDefault(logger)
	observers := []observability.Observer{observability.NewSlogObserver(logger)}

	if logOutput != "" {
		f, err := os.OpenFile(logOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log output: %w", err)
		}
		defer f.Close()
		fileLogger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		observers = append(observers, observability.NewSlogObserver(fileLogger))
	}
	observability.RegisterObserver("slog", observability.Combine(observers...))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if remote != "" {
		client := server.NewClient(nil, remote)
		if cfg.Credential != "" {
			if err := client.SetCredential(ctx, cfg.Credential); err != nil {
				return fmt.Errorf("failed to send credential: %w", err)
			}
		}
		return newREPL(client, os.Stdout).run(ctx, os.Stdin)
	}

	core, err := chat.New(&cfg)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if serve {
		observer, err := observability.GetObserver(cfg.Observer)
		if err != nil {
			return fmt.Errorf("%w (registered: %s)", err, strings.Join(observability.ObserverNames(), ", "))
		}
		srv := server.New(core, &cfg.Server, server.WithObserver(observer))
		return srv.ListenAndServe(ctx)
	}

	if cfg.Credential == "" {
		fmt.Fprintf(os.Stderr, "no credential set; use /key <value> or %s\n", credentialEnv)
	}
	return newREPL(localDriver{core: core}, os.Stdout).run(ctx, os.Stdin)
}
