// Package id provides issue ID generators.
package id

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// UUIDv7 creates time-ordered UUID strings so stored issues sort by insertion.
type UUIDv7 struct{}

// NewUUIDv7 creates a new UUIDv7 generator.
func NewUUIDv7() *UUIDv7 {
	return &UUIDv7{}
}

// NewID returns a UUID7 string.
func (UUIDv7) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// IsUUID reports whether s parses as a UUID of any version.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// Sequence hands out deterministic IDs ("<prefix>-1", "<prefix>-2", ...).
type Sequence struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequence creates a Sequence generator.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// NewID returns the next ID in the sequence.
func (s *Sequence) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", s.prefix, s.next), nil
}
