package response

import "errors"

// ErrMalformed is returned when a completion body does not have the expected shape.
var ErrMalformed = errors.New("malformed response")
