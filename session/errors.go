package session

import "errors"

// Sentinel errors for submission.
var (
	ErrInvalidInput = errors.New("input is empty")
	ErrBusy         = errors.New("a request is already in flight")
)
