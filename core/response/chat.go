// Package response parses bodies returned by the remote chat-completion
// endpoint.
package response

import (
	"encoding/json"
	"fmt"
)

// ChatResponse is the subset of an OpenAI-compatible chat completion body the
// gateway relies on.
type ChatResponse struct {
	ID      string `json:"id,omitempty"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// Content returns the message content of the first choice, or an empty
// string when there is none.
func (r *ChatResponse) Content() string {
	if len(r.Choices) == 0 || r.Choices[0].Message.Content == nil {
		return ""
	}
	return *r.Choices[0].Message.Content
}

// ParseChat parses a chat completion body. The body must be a JSON object
// whose first choice carries a string message.content; anything else is
// reported as ErrMalformed.
func ParseChat(body []byte) (*ChatResponse, error) {
	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: failed to parse chat response: %v", ErrMalformed, err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("%w: response contains no choices", ErrMalformed)
	}
	if response.Choices[0].Message.Content == nil {
		return nil, fmt.Errorf("%w: first choice has no message content", ErrMalformed)
	}

	return &response, nil
}
