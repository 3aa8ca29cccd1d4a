// Package memory provides an in-memory RecordSink for development and
// tests.
package memory

import (
	"context"
	"sync"

	"github.com/sheriffdata/gazette-etl/internal/auction"
)

// Sink stores records in a map keyed by case number.
type Sink struct {
	mu      sync.RWMutex
	records map[string]auction.Fields
}

// New constructs an empty Sink.
func New() *Sink {
	return &Sink{records: make(map[string]auction.Fields)}
}

// ExistingKeys reports which candidate keys are already stored.
func (s *Sink) ExistingKeys(_ context.Context, keys []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing := make(map[string]struct{})
	for _, k := range keys {
		if _, ok := s.records[k]; ok {
			existing[k] = struct{}{}
		}
	}
	return existing, nil
}

// Upsert stores one record, replacing any previous entry for the key.
func (s *Sink) Upsert(_ context.Context, key string, fields auction.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = fields
	return nil
}

// Get returns the stored fields for a key.
func (s *Sink) Get(key string) (auction.Fields, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.records[key]
	return fields, ok
}

// Len reports the number of stored records.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
