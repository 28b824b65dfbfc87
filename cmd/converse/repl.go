package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tailored-agentic-units/converse/chat"
	"github.com/tailored-agentic-units/converse/core/protocol"
	"github.com/tailored-agentic-units/converse/prompts"
	"github.com/tailored-agentic-units/converse/session"
)

// driver is the command surface the terminal loop needs. *server.Client
// satisfies it directly; localDriver adapts a *chat.Core.
type driver interface {
	SetInput(ctx context.Context, text string) error
	UseExample(ctx context.Context, text string) error
	SetCredential(ctx context.Context, text string) error
	Submit(ctx context.Context) (session.Snapshot, error)
	Clear(ctx context.Context) (session.Snapshot, error)
	Snapshot(ctx context.Context) (session.Snapshot, error)
	ListExamples(ctx context.Context) ([]prompts.Prompt, error)
}

type localDriver struct {
	core *chat.Core
}

func (d localDriver) SetInput(ctx context.Context, text string) error {
	d.core.OnInputChanged(text)
	return nil
}

func (d localDriver) UseExample(ctx context.Context, text string) error {
	d.core.OnExample(text)
	return nil
}

func (d localDriver) SetCredential(ctx context.Context, text string) error {
	d.core.OnCredentialChanged(text)
	return nil
}

func (d localDriver) Submit(ctx context.Context) (session.Snapshot, error) {
	if err := d.core.OnSubmit(ctx); err != nil {
		return session.Snapshot{}, err
	}
	return d.core.Snapshot(), nil
}

func (d localDriver) Clear(ctx context.Context) (session.Snapshot, error) {
	d.core.OnClear()
	return d.core.Snapshot(), nil
}

func (d localDriver) Snapshot(ctx context.Context) (session.Snapshot, error) {
	return d.core.Snapshot(), nil
}

func (d localDriver) ListExamples(ctx context.Context) ([]prompts.Prompt, error) {
	return d.core.Examples(), nil
}

// repl reads commands line by line and prints every message it has not
// printed yet. A plain line is submitted; an empty line submits whatever
// is staged, such as an example.
type repl struct {
	d       driver
	out     io.Writer
	printed int64
}

func newREPL(d driver, out io.Writer) *repl {
	return &repl{d: d, out: out}
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	snap, err := r.d.Snapshot(ctx)
	if err != nil {
		return err
	}
	r.print(snap)
	fmt.Fprintln(r.out, "commands: /key <credential>, /example [name|text], /clear, /quit")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := r.handle(ctx, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// handle executes one line. Rejected submissions are reported and the loop
// continues; any other error ends it.
func (r *repl) handle(ctx context.Context, line string) (quit bool, err error) {
	command, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/quit", "/exit":
		return true, nil
	case "/clear":
		snap, err := r.d.Clear(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "(conversation cleared)")
		r.print(snap)
		return false, nil
	case "/key":
		if err := r.d.SetCredential(ctx, arg); err != nil {
			return false, err
		}
		if arg == "" {
			fmt.Fprintln(r.out, "(credential removed)")
		} else {
			fmt.Fprintln(r.out, "(credential set)")
		}
		return false, nil
	case "/example":
		if arg == "" {
			return false, r.listExamples(ctx)
		}
		if err := r.d.UseExample(ctx, arg); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "(example staged, press enter to send)")
		return false, nil
	case "":
		return false, r.submit(ctx)
	}

	if err := r.d.SetInput(ctx, line); err != nil {
		return false, err
	}
	return false, r.submit(ctx)
}

func (r *repl) submit(ctx context.Context) error {
	snap, err := r.d.Submit(ctx)
	switch {
	case errors.Is(err, session.ErrInvalidInput):
		fmt.Fprintln(r.out, "(nothing to send)")
		return nil
	case errors.Is(err, session.ErrBusy):
		fmt.Fprintln(r.out, "(still waiting for the previous reply)")
		return nil
	case err != nil:
		return err
	}
	r.print(snap)
	return nil
}

func (r *repl) listExamples(ctx context.Context) error {
	list, err := r.d.ListExamples(ctx)
	if err != nil {
		return err
	}
	for _, p := range list {
		fmt.Fprintf(r.out, "  %-20s %s\n", p.Name, p.Text)
	}
	return nil
}

func (r *repl) print(snap session.Snapshot) {
	for _, m := range snap.Messages {
		if m.Sequence <= r.printed {
			continue
		}
		r.printed = m.Sequence

		label := "you"
		if m.Role == protocol.RoleAssistant {
			label = "assistant"
		}
		fmt.Fprintf(r.out, "%s: %s\n", label, m.Content)
	}
}
