package workers

import (
	"sync"

	"github.com/qrv0/sparrow/internal/sparse"
)

// Locked serializes every use of one shared handle. Callers put the whole
// bind-then-issue sequence inside Do.
type Locked struct {
	mu sync.Mutex
	h  sparse.Handle
}

// NewLocked wraps h. The caller keeps ownership of its lifetime.
func NewLocked(h sparse.Handle) *Locked {
	return &Locked{h: h}
}

// Do runs fn with exclusive access to the handle.
func (l *Locked) Do(fn func(h sparse.Handle) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.h)
}
