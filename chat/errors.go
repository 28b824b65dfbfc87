package chat

import "errors"

// ErrConfigFormat is returned when a config file cannot be decoded.
var ErrConfigFormat = errors.New("invalid config file")
