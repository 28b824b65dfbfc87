package prompts

// Config holds prompt library parameters.
type Config struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"` // FileStore root directory; empty uses built-ins only.
}

// DefaultConfig returns the default configuration (built-ins only).
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
}

// NewStore creates a Store from configuration. Returns a nil Store when Path
// is empty.
func NewStore(cfg *Config) Store {
	if cfg.Path == "" {
		return nil
	}
	return NewFileStore(cfg.Path)
}
