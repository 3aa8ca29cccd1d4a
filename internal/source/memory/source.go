// Package memory provides an in-memory DocumentSource for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sheriffdata/gazette-etl/internal/auction"
)

// Source keeps documents in memory keyed by document key.
type Source struct {
	mu       sync.RWMutex
	pending  map[string][]byte
	archived map[string][]byte
}

// New constructs an empty Source.
func New() *Source {
	return &Source{
		pending:  make(map[string][]byte),
		archived: make(map[string][]byte),
	}
}

// Put stages a document under the intake area.
func (s *Source) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = append([]byte(nil), data...)
}

// Fetch returns the raw bytes for a key, or ErrDocumentNotFound.
func (s *Source) Fetch(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.pending[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, auction.ErrDocumentNotFound)
	}
	return append([]byte(nil), data...), nil
}

// ListPending returns the staged keys in sorted order.
func (s *Source) ListPending(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Archive moves a document from the intake area to the archive.
func (s *Source) Archive(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.pending[key]
	if !ok {
		return fmt.Errorf("%s: %w", key, auction.ErrDocumentNotFound)
	}
	s.archived[key] = data
	delete(s.pending, key)
	return nil
}

// Archived reports whether a key has been archived.
func (s *Source) Archived(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.archived[key]
	return ok
}
