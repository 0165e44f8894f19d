package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StorageKey names the single durable entry holding the cache snapshot.
const StorageKey = "kaextract.cache"

// ErrQuotaExceeded is returned by Storage.Save when the value does not fit.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Storage persists one named value. Load returns nil data and no error
// when nothing has been saved yet.
type Storage interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Remove() error
}

// MemoryStorage keeps the value in process memory.
type MemoryStorage struct {
	mu    sync.Mutex
	data  []byte
	quota int64
	saves int
}

// NewMemoryStorage returns storage refusing values larger than quota bytes;
// quota <= 0 disables the limit.
func NewMemoryStorage(quota int64) *MemoryStorage {
	return &MemoryStorage{quota: quota}
}

func (m *MemoryStorage) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryStorage) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 && int64(len(data)) > m.quota {
		return fmt.Errorf("memory storage: %d bytes: %w", len(data), ErrQuotaExceeded)
	}
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

func (m *MemoryStorage) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// Saves reports how many successful writes happened.
func (m *MemoryStorage) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FileStorage keeps the value in <dir>/<StorageKey>.json.
type FileStorage struct {
	path  string
	quota int64
}

func NewFileStorage(dir string, quota int64) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating cache directory: %w", err)
	}
	return &FileStorage{
		path:  filepath.Join(dir, StorageKey+".json"),
		quota: quota,
	}, nil
}

// Path returns the file backing the storage.
func (f *FileStorage) Path() string {
	return f.path
}

func (f *FileStorage) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return data, nil
}

// Save writes through a temp file and rename so a reader never sees a
// partially written snapshot.
func (f *FileStorage) Save(data []byte) error {
	if f.quota > 0 && int64(len(data)) > f.quota {
		return fmt.Errorf("file storage: %d bytes: %w", len(data), ErrQuotaExceeded)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), StorageKey+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

func (f *FileStorage) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}
