package response

import (
	"encoding/json"
	"strings"
)

// APIError is the OpenAI-style error envelope returned with non-2xx statuses:
//
//	{"error": {"message": "...", "type": "...", "code": "..."}}
type APIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type,omitempty"`
		Code    any    `json:"code,omitempty"`
	} `json:"error"`
}

// ErrorDetail extracts a human-readable reason from an error body. It prefers
// error.message from an API error envelope and otherwise falls back to the
// raw body, trimmed and truncated to limit bytes.
func ErrorDetail(body []byte, limit int) string {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}

	text := strings.TrimSpace(string(body))
	if limit > 0 && len(text) > limit {
		text = text[:limit] + "..."
	}
	return text
}
