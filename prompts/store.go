// Package prompts provides the example prompts a user can stage into the
// input with one command. A small built-in set is always present; more can
// be loaded from a directory of text files.
package prompts

import "context"

// Store reads prompt files from external storage. Implementations perform
// I/O on each call without caching.
type Store interface {
	// List returns all available keys in the store.
	List(ctx context.Context) ([]string, error)
	// Load retrieves entries for the specified keys.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
}

// Entry is one stored prompt. Keys are /-separated relative paths.
type Entry struct {
	Key   string
	Value []byte
}
