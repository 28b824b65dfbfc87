package gateway

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint      = "https://api.deepseek.com/v1/chat/completions"
	DefaultModel         = "deepseek-chat"
	DefaultTemperature   = 0.7
	DefaultMaxTokens     = 2000
	DefaultContextWindow = 10
	DefaultTimeout       = 30 * time.Second
	DefaultEncoding      = "cl100k_base"
)

// Config holds the remote endpoint and request shaping parameters.
type Config struct {
	Endpoint      string   `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Model         string   `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature   float64  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens     int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	ContextWindow int      `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	Timeout       Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// CountTokens measures the outbound context window with a BPE tokenizer
	// and reports it on the request event. Loading the encoding may require
	// network access on first use.
	CountTokens bool   `json:"count_tokens,omitempty" yaml:"count_tokens,omitempty"`
	Encoding    string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
}

// DefaultConfig returns the DeepSeek chat endpoint with a ten-message window
// and a thirty second timeout.
func DefaultConfig() Config {
	return Config{
		Endpoint:      DefaultEndpoint,
		Model:         DefaultModel,
		Temperature:   DefaultTemperature,
		MaxTokens:     DefaultMaxTokens,
		ContextWindow: DefaultContextWindow,
		Timeout:       Duration(DefaultTimeout),
		Encoding:      DefaultEncoding,
	}
}

// Merge applies non-zero values from source into c. A zero temperature
// cannot be expressed through Merge.
func (c *Config) Merge(source *Config) {
	if source.Endpoint != "" {
		c.Endpoint = source.Endpoint
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.Temperature != 0 {
		c.Temperature = source.Temperature
	}
	if source.MaxTokens > 0 {
		c.MaxTokens = source.MaxTokens
	}
	if source.ContextWindow > 0 {
		c.ContextWindow = source.ContextWindow
	}
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
	if source.CountTokens {
		c.CountTokens = true
	}
	if source.Encoding != "" {
		c.Encoding = source.Encoding
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: endpoint: %v", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: endpoint must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.Endpoint)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is empty", ErrInvalidConfig)
	}
	if c.ContextWindow <= 0 {
		return fmt.Errorf("%w: context_window must be positive, got %d", ErrInvalidConfig, c.ContextWindow)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	}
	return nil
}

// Duration is a time.Duration that reads and writes as a Go duration string
// ("30s", "1m30s"). JSON and YAML numbers are accepted as seconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err == nil {
		*d = Duration(seconds * float64(time.Second))
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	return d.UnmarshalText([]byte(text))
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	switch node.ShortTag() {
	case "!!int", "!!float":
		var seconds float64
		if err := node.Decode(&seconds); err != nil {
			return fmt.Errorf("invalid duration %q: %w", node.Value, err)
		}
		*d = Duration(seconds * float64(time.Second))
		return nil
	case "!!str":
		return d.UnmarshalText([]byte(node.Value))
	default:
		return fmt.Errorf("invalid duration %q", node.Value)
	}
}
