package blobstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store persists raw attachment bytes under an opaque locator. The metadata
// row keeps only the locator, never the bytes.
type Store interface {
	Put(data []byte, ext string) (string, error)
	Get(locator string) ([]byte, error)
	Delete(locator string) error
}

// FSStore writes blobs to a directory, one file per blob, named by a random
// UUID plus the original extension.
type FSStore struct {
	baseDir string
}

// NewFSStore creates the base directory if needed and returns a store over it.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", baseDir, err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// Put writes the blob and returns its locator (the generated file name).
func (s *FSStore) Put(data []byte, ext string) (string, error) {
	name := uuid.New().String() + sanitizeExt(ext)
	if err := os.WriteFile(filepath.Join(s.baseDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	return name, nil
}

// Get reads a blob by locator.
func (s *FSStore) Get(locator string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, filepath.Base(locator)))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", locator, err)
	}
	return data, nil
}

// Delete removes a blob; deleting an already-missing blob is not an error.
func (s *FSStore) Delete(locator string) error {
	err := os.Remove(filepath.Join(s.baseDir, filepath.Base(locator)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", locator, err)
	}
	return nil
}

// sanitizeExt keeps locators to a single path element with a plain extension.
func sanitizeExt(ext string) string {
	ext = strings.ToLower(filepath.Ext("x" + ext))
	if ext == "" {
		return ".bin"
	}
	return ext
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	blobs map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Put stores the blob under a generated locator.
func (s *MemoryStore) Put(data []byte, ext string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := uuid.New().String() + sanitizeExt(ext)
	s.blobs[name] = append([]byte(nil), data...)
	return name, nil
}

// Get returns a stored blob.
func (s *MemoryStore) Get(locator string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[locator]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", locator)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes a stored blob; missing blobs are not an error.
func (s *MemoryStore) Delete(locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, locator)
	return nil
}

// Len reports how many blobs the store holds. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.blobs)
}
