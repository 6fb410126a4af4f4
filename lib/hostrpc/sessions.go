// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostrpc

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// Sessions maps session identifiers handed to the host onto the
// values they name. Identifiers are ULIDs and are never reused.
type Sessions[T any] struct {
	mu     sync.Mutex
	values map[string]T
}

// NewSessions returns an empty table.
func NewSessions[T any]() *Sessions[T] {
	return &Sessions[T]{values: make(map[string]T)}
}

// Add stores value under a fresh identifier and returns it.
func (s *Sessions[T]) Add(value T) string {
	id := ulid.Make().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[id] = value
	return id
}

// Get returns the value stored under id.
func (s *Sessions[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[id]
	return value, ok
}

// Remove forgets id. Removing an unknown id is a no-op; the return
// value reports whether id was present.
func (s *Sessions[T]) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[id]
	delete(s.values, id)
	return ok
}

// Len returns the number of open sessions.
func (s *Sessions[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
