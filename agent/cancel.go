package agent

import "sync"

// CancelChecker reports whether cancellation has been requested for a task.
// The executor consults it exactly once per execution, immediately after the
// first model round returns.
type CancelChecker interface {
	IsCanceled(taskID string) bool
}

// CancelRegistry is a process-wide set of task ids marked for cancellation.
// Entries are never removed; task ids are not reused, so the set growing
// monotonically for the process lifetime is acceptable.
type CancelRegistry struct {
	mu       sync.RWMutex
	canceled map[string]struct{}
}

// NewCancelRegistry constructs an empty registry.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{canceled: make(map[string]struct{})}
}

// Cancel marks a task for cancellation. It publishes no event itself; the
// in-flight execution's checkpoint produces the terminal canceled status.
func (r *CancelRegistry) Cancel(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled[taskID] = struct{}{}
}

// IsCanceled implements CancelChecker.
func (r *CancelRegistry) IsCanceled(taskID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.canceled[taskID]
	return ok
}
