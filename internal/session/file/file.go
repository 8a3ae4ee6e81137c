// Package file keeps CLI sessions in a single JSON document on disk,
// one entry per key, readable only by the owner.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"expensetracker/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Backend struct {
	mu   sync.Mutex
	path string
}

var _ session.Backend = (*Backend)(nil)

func New(path string) *Backend {
	return &Backend{path: path}
}

// DefaultPath returns the per-user location of the CLI session file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "expensetracker", "session.json"), nil
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read()
	if err != nil {
		return nil, err
	}
	raw, ok := entries[key]
	if !ok {
		return nil, session.ErrNotFound
	}
	return raw, nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read()
	if err != nil {
		// An unreadable file is replaced rather than blocking login.
		entries = map[string]jsoniter.RawMessage{}
	}
	if !json.Valid(value) {
		return fmt.Errorf("session value for %s is not JSON", key)
	}
	entries[key] = value
	return b.write(entries)
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.read()
	if err != nil {
		entries = map[string]jsoniter.RawMessage{}
	} else if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return b.write(entries)
}

func (b *Backend) read() (map[string]jsoniter.RawMessage, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]jsoniter.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	entries := map[string]jsoniter.RawMessage{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return entries, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (b *Backend) write(entries map[string]jsoniter.RawMessage) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path)
}
