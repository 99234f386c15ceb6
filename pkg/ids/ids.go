package ids

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Allocator issues identifiers for newly created entities (characters, items,
// quests, events, residences). IDs are opaque strings so they survive JSON
// round-trips through storage unchanged.
type Allocator interface {
	NewID() string
}

// UUID allocates random v4 UUIDs.
type UUID struct{}

// Ensure UUID implements Allocator
var _ Allocator = UUID{}

func (UUID) NewID() string {
	return uuid.New().String()
}

// Sequence allocates predictable IDs of the form "<prefix>-<n>".
// Useful for fixtures and tests where stable output matters.
type Sequence struct {
	Prefix string

	mu   sync.Mutex
	next int
}

// NewSequence creates a sequence allocator starting at 1
func NewSequence(prefix string) *Sequence {
	return &Sequence{Prefix: prefix}
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	if s.Prefix == "" {
		return fmt.Sprintf("id-%d", s.next)
	}
	return fmt.Sprintf("%s-%d", s.Prefix, s.next)
}
