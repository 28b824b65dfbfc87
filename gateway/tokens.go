package gateway

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tailored-agentic-units/converse/core/protocol"
)

// perMessageOverhead approximates the role and framing tokens the chat
// format adds around each message.
const perMessageOverhead = 4

// TokenCounter measures the size of an outbound context window.
type TokenCounter interface {
	Count(messages []protocol.Message) (int, error)
}

// TokenCounterFunc adapts a function to TokenCounter.
type TokenCounterFunc func(messages []protocol.Message) (int, error)

func (f TokenCounterFunc) Count(messages []protocol.Message) (int, error) {
	return f(messages)
}

// lazyCounter loads the BPE encoding on first use. A failed load is
// remembered and returned on every later call.
type lazyCounter struct {
	encoding string

	once sync.Once
	tke  *tiktoken.Tiktoken
	err  error
}

func newLazyCounter(encoding string) *lazyCounter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &lazyCounter{encoding: encoding}
}

func (c *lazyCounter) Count(messages []protocol.Message) (int, error) {
	c.once.Do(func() {
		c.tke, c.err = tiktoken.GetEncoding(c.encoding)
		if c.err != nil {
			c.err = fmt.Errorf("load encoding %q: %w", c.encoding, c.err)
		}
	})
	if c.err != nil {
		return 0, c.err
	}

	total := 0
	for _, msg := range messages {
		total += perMessageOverhead
		total += len(c.tke.Encode(msg.Role.String(), nil, nil))
		total += len(c.tke.Encode(msg.Content, nil, nil))
	}
	return total, nil
}
