// Package memory is an in-process record source for tests and demos.
package memory

import (
	"context"
	"sync"

	"ecomdash/internal/core"
)

type Store struct {
	mu      sync.Mutex
	records [][]string
	reads   int
}

// New stores rows under the standard header.
func New(rows ...[]string) *Store {
	s := &Store{}
	s.Replace(rows...)
	return s
}

// Replace swaps the stored rows.
func (s *Store) Replace(rows ...[]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make([][]string, 0, len(rows)+1)
	s.records = append(s.records, append([]string(nil), core.RequiredColumns...))
	for _, r := range rows {
		s.records = append(s.records, append([]string(nil), r...))
	}
}

// Records returns a deep copy of the stored header and rows.
func (s *Store) Records(_ context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	out := make([][]string, len(s.records))
	for i, r := range s.records {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

// Reads counts Records calls.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
