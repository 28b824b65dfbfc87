// Package session holds the state of one interactive conversation: the
// append-only message log, the busy flag that brackets an in-flight
// completion, the staged input and the remote credential.
package session

import (
	"iter"
	"time"

	"github.com/tailored-agentic-units/converse/core/protocol"
)

// Message is one turn of the conversation. Sequence is assigned at append
// time and increases by exactly one per append for the lifetime of the store.
type Message struct {
	Sequence  int64         `json:"sequence"`
	Role      protocol.Role `json:"role"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
}

// Wire returns the role/content pair sent to the remote model.
func (m Message) Wire() protocol.Message {
	return protocol.NewMessage(m.Role, m.Content)
}

// Snapshot is a read-only copy of the renderable session state.
type Snapshot struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	Busy      bool      `json:"busy"`
}

// Turn is the state captured when a submission is accepted.
type Turn struct {
	Prompt Message
	// Context holds the last messages up to the requested window, oldest
	// first, ending with Prompt.
	Context    []Message
	Credential string
}

// Configured reports whether a credential was set at acceptance.
func (t Turn) Configured() bool {
	return t.Credential != ""
}

// Listener receives a snapshot after every change to messages or busy.
// Listeners run on the mutating goroutine, in mutation order, without the
// store lock held. They may read the store but must not mutate it.
type Listener func(Snapshot)

// Store owns a SessionState. Implementations must be safe for concurrent use.
type Store interface {
	// ID returns the unique session identifier.
	ID() string

	// AppendUser trims text and appends it as a user message. Returns
	// ErrInvalidInput if nothing remains after trimming.
	AppendUser(text string) (Message, error)
	// AppendAssistant appends an assistant message. Never fails.
	AppendAssistant(text string) Message

	// Begin atomically checks busy, appends a user message, sets busy and
	// captures the last window messages and the credential. Returns ErrBusy
	// or ErrInvalidInput without changing state.
	Begin(text string, window int) (Turn, error)
	// Resolve atomically appends an assistant message and clears busy.
	Resolve(text string) Message

	SetBusy(busy bool)
	Busy() bool

	// Clear empties the message log. Busy and credential are untouched.
	Clear()

	// SetCredential replaces the stored credential verbatim.
	SetCredential(value string)
	// Credential returns the stored credential and whether one is set.
	Credential() (string, bool)

	SetPendingInput(text string)
	PendingInput() string
	ClearPendingInput()
	// ClearPendingInputIf clears the pending input only while it still
	// equals text. Reports whether it cleared.
	ClearPendingInputIf(text string) bool

	// RecentContext returns the last limit messages, oldest first. The
	// sequence is evaluated lazily on each iteration and may be ranged over
	// any number of times.
	RecentContext(limit int) iter.Seq[Message]
	// Messages returns a defensive copy of the whole log.
	Messages() []Message
	Len() int

	Snapshot() Snapshot
	// Subscribe registers fn for change notifications. The returned function
	// removes the subscription.
	Subscribe(fn Listener) (cancel func())
}
