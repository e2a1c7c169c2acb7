package scan

import "sync"

// Tracker records which paths have already been handled during this process
// lifetime. It is deliberately an interface so orchestration code can be
// tested against a fresh instance and so the store could be swapped out
// without touching the run loop. Entries are never persisted across restarts.
type Tracker interface {
	// Seen reports whether the path has already been marked.
	Seen(path string) bool
	// Mark records the path as handled. It returns true if the path was
	// newly added, false if it was already present. The check and the add
	// are a single atomic step.
	Mark(path string) bool
	// Clear forgets all marked paths and returns how many were dropped.
	Clear() int
	// Size returns the number of marked paths.
	Size() int
}

// MemoryTracker is the in-memory Tracker used for normal operation.
type MemoryTracker struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewMemoryTracker returns an empty in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{paths: make(map[string]struct{})}
}

func (t *MemoryTracker) Seen(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.paths[path]
	return ok
}

func (t *MemoryTracker) Mark(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.paths[path]; ok {
		return false
	}
	t.paths[path] = struct{}{}
	return true
}

func (t *MemoryTracker) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.paths)
	t.paths = make(map[string]struct{})
	return n
}

func (t *MemoryTracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.paths)
}
