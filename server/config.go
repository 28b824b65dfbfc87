package server

import (
	"time"

	"github.com/tailored-agentic-units/converse/gateway"
)

const (
	DefaultAddr         = "127.0.0.1:8420"
	DefaultPingInterval = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// Config controls the network front end.
type Config struct {
	Addr         string           `json:"addr,omitempty" yaml:"addr,omitempty"`
	PingInterval gateway.Duration `json:"ping_interval,omitempty" yaml:"ping_interval,omitempty"`
	WriteTimeout gateway.Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         DefaultAddr,
		PingInterval: gateway.Duration(DefaultPingInterval),
		WriteTimeout: gateway.Duration(DefaultWriteTimeout),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.PingInterval > 0 {
		c.PingInterval = source.PingInterval
	}
	if source.WriteTimeout > 0 {
		c.WriteTimeout = source.WriteTimeout
	}
}

// pongWait is how long a feed connection may stay silent before it is
// considered dead.
func (c *Config) pongWait() time.Duration {
	return c.PingInterval.Std() * 2
}
