package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps all keys in a single JSON object on disk.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend returns a backend storing its data at path. The file is
// created lazily on the first write.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("tokenstore: empty file path")
	}
	return &FileBackend{path: path}, nil
}

func (f *FileBackend) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return "", err
	}
	return m[key], nil
}

func (f *FileBackend) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		m = map[string]string{}
	}
	m[key] = value
	return f.save(m)
}

func (f *FileBackend) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		m = map[string]string{}
	}
	for _, k := range keys {
		delete(m, k)
	}
	return f.save(m)
}

func (f *FileBackend) Close() error { return nil }

// load reads the JSON map. A missing file is an empty map.
func (f *FileBackend) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tokenstore: reading %s: %w", f.path, err)
	}

	m := map[string]string{}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		backupPath := f.path + ".corrupt"
		_ = os.Rename(f.path, backupPath)
		return nil, fmt.Errorf("%w %s (backed up to %s): %v", ErrCorrupt, f.path, backupPath, err)
	}
	return m, nil
}

// save writes the map atomically: temp file then rename.
func (f *FileBackend) save(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("tokenstore: creating directories: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenstore: marshalling JSON: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("tokenstore: writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("tokenstore: renaming temp file: %w", err)
	}
	return nil
}
