package session

// Config holds session initialization parameters. The only backend is the
// in-memory store, so there is nothing to configure yet; the type keeps the
// session section addressable in configuration files.
type Config struct{}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {}

// New creates a Store from configuration.
func New(cfg *Config) (Store, error) {
	return NewMemoryStore(), nil
}
