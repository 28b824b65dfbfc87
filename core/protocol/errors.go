package protocol

import "errors"

// ErrUnknownRole is returned when a role name or value is outside {user, assistant}.
var ErrUnknownRole = errors.New("unknown role")
