// Package store implements the persisted blob store the configuration
// records are written to. Paths are slash separated and absolute, mirroring
// the flash file system layout on the device ("/config/wifi/network").
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when no document exists at a path.
	ErrNotFound = errors.New("store: not found")

	// ErrTooLarge is returned when a document exceeds the caller's size limit.
	ErrTooLarge = errors.New("store: document too large")

	// ErrInvalidPath is returned for empty or escaping paths.
	ErrInvalidPath = errors.New("store: invalid path")
)

// Store is path-addressed blob storage.
type Store interface {
	// ReadFile returns the whole document at p. Documents larger than limit
	// bytes are rejected with ErrTooLarge without being returned.
	ReadFile(p string, limit int64) ([]byte, error)
	// WriteFile replaces the document at p.
	WriteFile(p string, data []byte) error
}

// Ensure implementations satisfy Store.
var (
	_ Store = (*Dir)(nil)
	_ Store = (*Memory)(nil)
)

// clean validates p and returns it in canonical form.
func clean(p string) (string, error) {
	if p == "" || !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	c := path.Clean(p)
	if c == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return c, nil
}

// Dir stores documents as files below a root directory.
type Dir struct {
	root string
}

// NewDir creates a Dir rooted at root, creating the directory if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root %s: %w", root, err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory documents are stored in.
func (d *Dir) Root() string { return d.root }

func (d *Dir) resolve(p string) (string, error) {
	c, err := clean(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.root, filepath.FromSlash(c)), nil
}

// ReadFile implements Store.
func (d *Dir) ReadFile(p string, limit int64) ([]byte, error) {
	name, err := d.resolve(p)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, p, info.Size(), limit)
	}

	// the file may grow between Stat and Read
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds limit %d", ErrTooLarge, p, limit)
	}
	return data, nil
}

// WriteFile implements Store. The document is written to a temporary file
// and renamed into place so a failed write never leaves a truncated document.
func (d *Dir) WriteFile(p string, data []byte) error {
	name, err := d.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", p, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

// Memory is an in-memory Store, used by tests and the mock device mode.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte

	// WriteErr, when set, is returned by every WriteFile call.
	WriteErr error
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

// ReadFile implements Store.
func (m *Memory) ReadFile(p string, limit int64) ([]byte, error) {
	c, err := clean(p)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.docs[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, p, len(data), limit)
	}
	return append([]byte(nil), data...), nil
}

// WriteFile implements Store.
func (m *Memory) WriteFile(p string, data []byte) error {
	c, err := clean(p)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return fmt.Errorf("failed to write %s: %w", p, m.WriteErr)
	}
	m.docs[c] = append([]byte(nil), data...)
	return nil
}
