package prompts

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// MaxPromptSize bounds a single prompt file.
const MaxPromptSize = 64 << 10

// Extensions recognized as prompt files.
var promptExtensions = map[string]bool{
	".txt":    true,
	".md":     true,
	".prompt": true,
}

type fileStore struct {
	root fs.FS
	dir  string
}

// NewFileStore creates a read-only Store over the prompt files under root.
// Keys are slash-separated relative paths; hidden entries and files with
// other extensions are skipped.
func NewFileStore(root string) Store {
	return &fileStore{root: os.DirFS(root), dir: root}
}

func (s *fileStore) List(_ context.Context) ([]string, error) {
	var keys []string

	err := fs.WalkDir(s.root, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == "." && os.IsNotExist(err) {
				return fs.SkipAll
			}
			return err
		}
		if p == "." {
			return nil
		}

		hidden := strings.HasPrefix(d.Name(), ".")
		switch {
		case d.IsDir() && hidden:
			return fs.SkipDir
		case d.IsDir(), hidden:
			return nil
		case promptExtensions[strings.ToLower(path.Ext(p))]:
			keys = append(keys, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, s.dir, err)
	}

	return keys, nil
}

func (s *fileStore) Load(_ context.Context, keys ...string) ([]Entry, error) {
	entries := make([]Entry, 0, len(keys))

	for _, key := range keys {
		if !fs.ValidPath(key) {
			return nil, fmt.Errorf("%w: invalid key %q", ErrKeyNotFound, key)
		}

		info, err := fs.Stat(s.root, key)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
		}
		if info.Size() > MaxPromptSize {
			return nil, fmt.Errorf("%w: %s: %d bytes exceeds %d", ErrLoadFailed, key, info.Size(), MaxPromptSize)
		}

		data, err := fs.ReadFile(s.root, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
		}
		entries = append(entries, Entry{Key: key, Value: data})
	}

	return entries, nil
}

// keyName derives the prompt name from a store key by dropping the
// extension: "coding/python.md" becomes "coding/python".
func keyName(key string) string {
	return strings.TrimSuffix(key, path.Ext(key))
}
