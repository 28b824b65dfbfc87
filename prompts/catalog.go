package prompts

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Prompt is a named example prompt.
type Prompt struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Builtin returns the prompts available without any configuration.
func Builtin() []Prompt {
	return []Prompt{
		{Name: "python-function", Text: "Help me write a Python function"},
		{Name: "machine-learning", Text: "Explain the concept of machine learning"},
		{Name: "creative-writing", Text: "Give me some suggestions for creative writing"},
	}
}

// Catalog holds the built-in prompts plus any loaded from a Store. Loaded
// prompts replace built-ins of the same name. All methods are safe for
// concurrent use.
type Catalog struct {
	store   Store
	prompts map[string]string
	mu      sync.RWMutex
}

// NewCatalog creates a Catalog seeded with the built-ins. A nil store is
// allowed; Load is then a no-op.
func NewCatalog(store Store) *Catalog {
	c := &Catalog{
		store:   store,
		prompts: make(map[string]string),
	}
	for _, p := range Builtin() {
		c.prompts[p.Name] = p.Text
	}
	return c
}

// Load reads every prompt file from the store. Blank files are ignored.
func (c *Catalog) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	keys, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	entries, err := c.store.Load(ctx, keys...)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		text := strings.TrimSpace(string(e.Value))
		if text == "" {
			continue
		}
		c.prompts[keyName(e.Key)] = text
	}
	return nil
}

// Get returns the text of the named prompt.
func (c *Catalog) Get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	text, ok := c.prompts[name]
	return text, ok
}

// Prompts lists every prompt sorted by name.
func (c *Catalog) Prompts() []Prompt {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := make([]Prompt, 0, len(c.prompts))
	for name, text := range c.prompts {
		list = append(list, Prompt{Name: name, Text: text})
	}
	slices.SortFunc(list, func(a, b Prompt) int {
		return strings.Compare(a.Name, b.Name)
	})
	return list
}
