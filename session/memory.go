package session

import (
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/converse/core/protocol"
)

type memoryStore struct {
	id         string
	messages   []Message
	sequence   int64
	busy       bool
	pending    string
	credential string

	listeners map[uint64]Listener
	nextSub   uint64

	mu  sync.RWMutex
	now func() time.Time

	// Notifications are ticketed under mu and delivered in ticket order
	// after mu is released.
	notifyMu  sync.Mutex
	notified  *sync.Cond
	issued    uint64
	delivered uint64
}

// NewMemoryStore creates a Store backed by an in-memory slice. The store is
// assigned a unique UUIDv7 identifier.
func NewMemoryStore() Store {
	s := &memoryStore{
		id:        uuid.Must(uuid.NewV7()).String(),
		listeners: make(map[uint64]Listener),
		now:       time.Now,
	}
	s.notified = sync.NewCond(&s.notifyMu)
	return s
}

func (s *memoryStore) ID() string {
	return s.id
}

func (s *memoryStore) AppendUser(text string) (Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Message{}, ErrInvalidInput
	}

	s.mu.Lock()
	msg := s.appendLocked(protocol.RoleUser, trimmed)
	s.commit()
	return msg, nil
}

func (s *memoryStore) AppendAssistant(text string) Message {
	s.mu.Lock()
	msg := s.appendLocked(protocol.RoleAssistant, text)
	s.commit()
	return msg
}

func (s *memoryStore) Begin(text string, window int) (Turn, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return Turn{}, ErrBusy
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		s.mu.Unlock()
		return Turn{}, ErrInvalidInput
	}

	msg := s.appendLocked(protocol.RoleUser, trimmed)
	s.busy = true

	start := max(len(s.messages)-max(window, 0), 0)
	turn := Turn{
		Prompt:     msg,
		Context:    slices.Clone(s.messages[start:]),
		Credential: s.credential,
	}
	s.commit()
	return turn, nil
}

func (s *memoryStore) Resolve(text string) Message {
	s.mu.Lock()
	msg := s.appendLocked(protocol.RoleAssistant, text)
	s.busy = false
	s.commit()
	return msg
}

func (s *memoryStore) SetBusy(busy bool) {
	s.mu.Lock()
	if s.busy == busy {
		s.mu.Unlock()
		return
	}
	s.busy = busy
	s.commit()
}

func (s *memoryStore) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

func (s *memoryStore) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.commit()
}

func (s *memoryStore) SetCredential(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = value
}

func (s *memoryStore) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, s.credential != ""
}

func (s *memoryStore) SetPendingInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = text
}

func (s *memoryStore) PendingInput() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

func (s *memoryStore) ClearPendingInput() {
	s.SetPendingInput("")
}

func (s *memoryStore) ClearPendingInputIf(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != text {
		return false
	}
	s.pending = ""
	return true
}

func (s *memoryStore) RecentContext(limit int) iter.Seq[Message] {
	return func(yield func(Message) bool) {
		if limit <= 0 {
			return
		}

		s.mu.RLock()
		start := max(len(s.messages)-limit, 0)
		window := slices.Clone(s.messages[start:])
		s.mu.RUnlock()

		for _, msg := range window {
			if !yield(msg) {
				return
			}
		}
	}
}

func (s *memoryStore) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

func (s *memoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *memoryStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *memoryStore) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *memoryStore) appendLocked(role protocol.Role, content string) Message {
	s.sequence++
	msg := Message{
		Sequence:  s.sequence,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

func (s *memoryStore) snapshotLocked() Snapshot {
	messages := slices.Clone(s.messages)
	if messages == nil {
		messages = []Message{}
	}
	return Snapshot{
		SessionID: s.id,
		Messages:  messages,
		Busy:      s.busy,
	}
}

// commit must be called with mu held for writing. It takes a delivery
// ticket, releases mu, then waits for earlier tickets before running the
// listeners, so notifications arrive in mutation order while listeners are
// free to read the store.
func (s *memoryStore) commit() {
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}

	ticket := s.issued
	s.issued++
	snap := s.snapshotLocked()
	listeners := slices.Collect(maps.Values(s.listeners))
	s.mu.Unlock()

	s.notifyMu.Lock()
	for s.delivered != ticket {
		s.notified.Wait()
	}
	s.notifyMu.Unlock()

	defer func() {
		s.notifyMu.Lock()
		s.delivered++
		s.notified.Broadcast()
		s.notifyMu.Unlock()
	}()

	for _, fn := range listeners {
		fn(snap)
	}
}
