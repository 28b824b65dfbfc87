package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/converse/prompts"
	"github.com/tailored-agentic-units/converse/session"
)

// Client calls a remote Server's procedures.
type Client struct {
	setInput      *connect.Client[wrapperspb.StringValue, emptypb.Empty]
	setCredential *connect.Client[wrapperspb.StringValue, emptypb.Empty]
	useExample    *connect.Client[wrapperspb.StringValue, emptypb.Empty]
	submit        *connect.Client[emptypb.Empty, session.Snapshot]
	clear         *connect.Client[emptypb.Empty, session.Snapshot]
	snapshot      *connect.Client[emptypb.Empty, session.Snapshot]
	examples      *connect.Client[emptypb.Empty, ExamplesResponse]
}

// NewClient creates a Client for the server at baseURL. A nil httpClient
// uses http.DefaultClient.
func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := strings.TrimRight(baseURL, "/")
	codec := connect.WithCodec(jsonCodec{})

	return &Client{
		setInput:      connect.NewClient[wrapperspb.StringValue, emptypb.Empty](httpClient, base+SetInputProcedure, codec),
		setCredential: connect.NewClient[wrapperspb.StringValue, emptypb.Empty](httpClient, base+SetCredentialProcedure, codec),
		useExample:    connect.NewClient[wrapperspb.StringValue, emptypb.Empty](httpClient, base+UseExampleProcedure, codec),
		submit:        connect.NewClient[emptypb.Empty, session.Snapshot](httpClient, base+SubmitProcedure, codec),
		clear:         connect.NewClient[emptypb.Empty, session.Snapshot](httpClient, base+ClearProcedure, codec),
		snapshot:      connect.NewClient[emptypb.Empty, session.Snapshot](httpClient, base+GetSnapshotProcedure, codec),
		examples:      connect.NewClient[emptypb.Empty, ExamplesResponse](httpClient, base+ListExamplesProcedure, codec),
	}
}

func (c *Client) SetInput(ctx context.Context, text string) error {
	_, err := c.setInput.CallUnary(ctx, connect.NewRequest(wrapperspb.String(text)))
	return err
}

func (c *Client) SetCredential(ctx context.Context, text string) error {
	_, err := c.setCredential.CallUnary(ctx, connect.NewRequest(wrapperspb.String(text)))
	return err
}

func (c *Client) UseExample(ctx context.Context, text string) error {
	_, err := c.useExample.CallUnary(ctx, connect.NewRequest(wrapperspb.String(text)))
	return err
}

// Submit submits the remote pending input and returns the snapshot taken
// after the exchange resolved. A rejection matches session.ErrInvalidInput
// or session.ErrBusy with errors.Is and still carries its *connect.Error.
func (c *Client) Submit(ctx context.Context) (session.Snapshot, error) {
	return call(ctx, c.submit)
}

func (c *Client) Clear(ctx context.Context) (session.Snapshot, error) {
	return call(ctx, c.clear)
}

func (c *Client) Snapshot(ctx context.Context) (session.Snapshot, error) {
	return call(ctx, c.snapshot)
}

func (c *Client) ListExamples(ctx context.Context) ([]prompts.Prompt, error) {
	res, err := c.examples.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return res.Msg.Examples, nil
}

func call(ctx context.Context, client *connect.Client[emptypb.Empty, session.Snapshot]) (session.Snapshot, error) {
	res, err := client.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return session.Snapshot{}, fromConnectError(err)
	}
	return *res.Msg, nil
}

// fromConnectError restores the session sentinel behind a rejection code.
func fromConnectError(err error) error {
	switch connect.CodeOf(err) {
	case connect.CodeInvalidArgument:
		return fmt.Errorf("%w: %w", session.ErrInvalidInput, err)
	case connect.CodeAborted:
		return fmt.Errorf("%w: %w", session.ErrBusy, err)
	default:
		return err
	}
}
