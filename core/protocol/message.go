// Package protocol defines the conversation vocabulary shared by the session
// store and the completion gateway: the closed set of message roles and the
// role/content pair sent to the remote chat-completion endpoint.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Role identifies the sender of a conversation turn. The zero value is not a
// valid role; only RoleUser and RoleAssistant are ever stored.
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleAssistant
)

// ParseRole converts the wire name of a role into a Role.
func ParseRole(name string) (Role, error) {
	switch name {
	case "user":
		return RoleUser, nil
	case "assistant":
		return RoleAssistant, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
}

// IsValid reports whether r is one of the defined roles.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// String returns the wire name of the role ("user" or "assistant").
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Message is a single role/content pair as exchanged with the remote model.
//
// Example:
//
//	msg := protocol.NewMessage(protocol.RoleUser, "Hello, world!")
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a Message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// Validate reports an error if the message carries an undefined role.
func (m Message) Validate() error {
	if !m.Role.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnknownRole, uint8(m.Role))
	}
	return nil
}

// String renders the message as compact JSON, mainly for logs and test output.
func (m Message) String() string {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("{%s %q}", m.Role, m.Content)
	}
	return string(data)
}
