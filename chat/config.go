package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailored-agentic-units/converse/gateway"
	"github.com/tailored-agentic-units/converse/prompts"
	"github.com/tailored-agentic-units/converse/server"
	"github.com/tailored-agentic-units/converse/session"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const defaultObserver = "slog"

// Config holds initialization parameters for the session core. Each
// subsystem section delegates to that subsystem's config-driven constructor.
type Config struct {
	Session session.Config `json:"session" yaml:"session"`
	Gateway gateway.Config `json:"gateway" yaml:"gateway"`
	Server  server.Config  `json:"server" yaml:"server"`
	Prompts prompts.Config `json:"prompts" yaml:"prompts"`

	// Observer names a registered observability.Observer.
	Observer string `json:"observer,omitempty" yaml:"observer,omitempty"`
	// Credential seeds the session credential at construction.
	Credential string `json:"credential,omitempty" yaml:"credential,omitempty"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Session:  session.DefaultConfig(),
		Gateway:  gateway.DefaultConfig(),
		Server:   server.DefaultConfig(),
		Prompts:  prompts.DefaultConfig(),
		Observer: defaultObserver,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Session.Merge(&source.Session)
	c.Gateway.Merge(&source.Gateway)
	c.Server.Merge(&source.Server)
	c.Prompts.Merge(&source.Prompts)

	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.Credential != "" {
		c.Credential = source.Credential
	}
}

// LoadConfig reads a config file, merges it with defaults, and returns the
// resulting Config. The format follows the extension: .yaml and .yml are
// YAML; .json and .jsonc are JSON with comments and trailing commas allowed.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	var loaded Config
	if err := decodeFile(filename, &loaded); err != nil {
		return nil, err
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

func decodeFile(filename string, v any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfigFormat, filename, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfigFormat, filename, err)
		}
	default:
		return fmt.Errorf("%w: unsupported config extension %q", ErrConfigFormat, ext)
	}

	return nil
}
