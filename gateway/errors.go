package gateway

import "errors"

// Failure classes folded into "an error occurred: ..." replies. They never
// escape Submit; they are exported so the reply text can be matched in tests
// and so event data carries a stable class.
var (
	ErrTransport     = errors.New("transport error")
	ErrStatus        = errors.New("unexpected response status")
	ErrInvalidConfig = errors.New("invalid gateway config")
)
