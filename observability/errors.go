package observability

import "errors"

var (
	// ErrUnknownObserver is returned when a named observer is not registered.
	ErrUnknownObserver = errors.New("unknown observer")
	// ErrUnknownLevel is returned by ParseLevel for unrecognized names.
	ErrUnknownLevel = errors.New("unknown level")
)
