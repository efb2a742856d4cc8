package services

import (
	"errors"
	"fmt"
	"sync"
)

// ErrRegistryConflict is returned when a message id is recorded against
// two different pages in one build
var ErrRegistryConflict = errors.New("message already recorded on another page")

// PageIDRegistry maps message ids to the page filename they were
// rendered on. Entries are write-once for the lifetime of a build.
type PageIDRegistry struct {
	mu    sync.RWMutex
	pages map[int64]string
}

// NewPageIDRegistry creates an empty registry
func NewPageIDRegistry() *PageIDRegistry {
	return &PageIDRegistry{pages: make(map[int64]string)}
}

// Record maps id to filename. Recording the same pair twice is a no-op.
func (r *PageIDRegistry) Record(id int64, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.pages[id]; ok {
		if existing == filename {
			return nil
		}
		return fmt.Errorf("%w: message %d on %s, not %s", ErrRegistryConflict, id, existing, filename)
	}

	r.pages[id] = filename
	return nil
}

// Resolve returns the page filename holding id
func (r *PageIDRegistry) Resolve(id int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filename, ok := r.pages[id]
	return filename, ok
}

// Link returns "<filename>#<id>" for a recorded message and "" otherwise,
// so templates can render an unresolved reply without an anchor.
func (r *PageIDRegistry) Link(id int64) string {
	filename, ok := r.Resolve(id)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s#%d", filename, id)
}

// Len returns the number of recorded messages
func (r *PageIDRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}
