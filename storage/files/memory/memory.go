// Package memstore keeps uploaded files in memory. Used in development and tests.
package memstore

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

type Store struct {
	mu    sync.RWMutex
	blobs map[string]stored
}

type stored struct {
	data        []byte
	contentType string
}

var _ core.BlobStore = (*Store)(nil) // interface compliance check

func New() *Store {
	return &Store{blobs: make(map[string]stored)}
}

func (s *Store) Put(ctx context.Context, key, contentType string, r io.Reader) (core.Blob, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return core.Blob{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Blob{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = stored{data: buf.Bytes(), contentType: contentType}
	return core.Blob{Key: key, URL: "memory://" + key, Size: int64(buf.Len()), ContentType: contentType}, nil
}

// Delete removes the blob. Deleting a missing blob is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Get returns the content of the blob key.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	return b.data, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
