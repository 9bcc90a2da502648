// Package storage provides the key-value persistence port used by the tracker
// and its adapters: an in-memory map, a single JSON file written atomically,
// and a SQLite table.
//
// Values are opaque byte slices (the tracker stores JSON documents). Every
// adapter completes a Save before returning, so a Load that follows always
// observes it.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Load when a key has never been saved.
var ErrNotFound = errors.New("key not found")

// Store is the persistence port.
type Store interface {
	Load(key string) ([]byte, error)
	Save(key string, value []byte) error
	Close() error
}

// UsageReporter is implemented by stores that can report how many bytes
// their persisted values occupy.
type UsageReporter interface {
	Usage() (int64, error)
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Options configures the file-backed adapters.
type Options struct {
	FilePermissions os.FileMode
	DirPermissions  os.FileMode
}

// DefaultOptions returns owner-only permissions for personal data.
func DefaultOptions() Options {
	return Options{FilePermissions: 0o600, DirPermissions: 0o700}
}

// Open creates a store for the named backend. An empty path selects an
// OS-appropriate location under the temp directory.
func Open(backend, path string, opts Options) (Store, error) {
	switch strings.ToLower(backend) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile, "":
		if path == "" {
			path = filepath.Join(os.TempDir(), "sense", "data.json")
		}
		return NewFileStore(path, opts)
	case BackendSQLite:
		if path == "" {
			path = filepath.Join(os.TempDir(), "sense", "sense.db")
		}
		return NewSQLiteStore(path, opts)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
