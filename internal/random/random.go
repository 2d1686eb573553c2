// Package random provides a seedable, goroutine-safe source for picking
// message variants.
package random

import (
	"math/rand"
	"sync"
	"time"
)

// Source picks indexes in [0, n)
type Source interface {
	Intn(n int) int
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Source seeded with seed; zero seeds from the clock
func New(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// Pick returns a random element of items, or the zero value when items is empty
func Pick[T any](src Source, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	if src == nil {
		src = New(0)
	}
	return items[src.Intn(len(items))]
}

// Fixed always returns the same index, clamped to n-1
type Fixed int

func (f Fixed) Intn(n int) int {
	if int(f) >= n {
		return n - 1
	}
	if f < 0 {
		return 0
	}
	return int(f)
}
