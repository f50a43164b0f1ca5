// Package memory stores blob content in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/wgilpin/paperstore/internal/paper"
)

// BlobStore keeps archived PDFs in a map and hands out pseudo URLs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	// UploadErr, when set, makes every Upload fail. Tests use it to
	// exercise the ingest abort path.
	UploadErr error
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// Upload persists the bytes under papers/<filename> and returns the
// reference and a memory:// view URL.
func (s *BlobStore) Upload(_ context.Context, filename string, data []byte) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UploadErr != nil {
		return "", "", &paper.UploadError{Err: s.UploadErr}
	}
	ref := "papers/" + filename
	s.data[ref] = append([]byte(nil), data...)
	return ref, fmt.Sprintf("memory://%s", ref), nil
}

// Get returns the stored bytes for a reference.
func (s *BlobStore) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[ref]
	if !ok {
		return nil, paper.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the stored bytes. Deleting a missing reference is a no-op.
func (s *BlobStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, ref)
	return nil
}

// Len reports the number of stored objects.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
