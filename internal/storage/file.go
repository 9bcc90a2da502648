package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileVersion is written into every persisted document.
const fileVersion = "1.0"

// FileStore keeps every key in one JSON document on disk. Writes go to a
// temporary file that is renamed over the original, so a crash mid-write
// leaves the previous document intact.
type FileStore struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage

	filePath        string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
}

// persistenceFile is the on-disk layout.
type persistenceFile struct {
	Version string                     `json:"version"`
	SavedAt time.Time                  `json:"saved_at"`
	Records map[string]json.RawMessage `json:"records"`
}

// NewFileStore opens the document at filePath, loading it if it exists.
func NewFileStore(filePath string, opts Options) (*FileStore, error) {
	if opts.FilePermissions == 0 {
		opts.FilePermissions = DefaultOptions().FilePermissions
	}
	if opts.DirPermissions == 0 {
		opts.DirPermissions = DefaultOptions().DirPermissions
	}

	s := &FileStore{
		values:          make(map[string]json.RawMessage),
		filePath:        filePath,
		filePermissions: opts.FilePermissions,
		dirPermissions:  opts.DirPermissions,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.filePath
}

// Load returns the value stored under key.
func (s *FileStore) Load(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Save stores value under key and rewrites the document. Values must be valid
// JSON. On a failed write the in-memory view is rolled back.
func (s *FileStore) Save(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %s is not valid JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.values[key]
	s.values[key] = append(json.RawMessage(nil), value...)

	if err := s.write(); err != nil {
		if existed {
			s.values[key] = previous
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Usage returns the size of the document on disk.
func (s *FileStore) Usage() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(s.filePath)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}
	return info.Size(), nil
}

// Close is a no-op; every Save is already on disk.
func (s *FileStore) Close() error {
	return nil
}

// write persists the current values. Caller holds the write lock.
func (s *FileStore) write() error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data := persistenceFile{
		Version: fileVersion,
		SavedAt: time.Now().UTC(),
		Records: s.values,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, s.filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// load restores values from disk. A missing file is an empty store.
func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clean up any stale temp file from a previous crash
	tempPath := s.filePath + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		_ = os.Remove(tempPath)
	}

	jsonData, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data persistenceFile
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	s.values = data.Records
	if s.values == nil {
		s.values = make(map[string]json.RawMessage)
	}
	return nil
}
