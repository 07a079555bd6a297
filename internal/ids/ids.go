// Package ids supplies collision-resistant identifiers for connections and
// generated room names.
package ids

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type Generator interface {
	NewID() string
}

// UUID generates random (v4) uuids
type UUID struct{}

func (UUID) NewID() string {
	return uuid.NewString()
}

// Sequence is a deterministic Generator for tests: prefix-1, prefix-2, ...
type Sequence struct {
	Prefix string

	mu   sync.Mutex
	next int
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", s.Prefix, s.next)
}
