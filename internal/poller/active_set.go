package poller

import "sync"

// ActiveSet tracks which parent_ids currently have a poller running.
// Membership-check-then-insert is atomic, so at most one poller ever
// runs per parent_id.
type ActiveSet struct {
	mu sync.Mutex
	m  map[int64]struct{}
}

func NewActiveSet() *ActiveSet {
	return &ActiveSet{m: map[int64]struct{}{}}
}

// TryAcquire inserts parentID if absent and reports whether it did.
// A false return means a poller is already active for this parent.
func (a *ActiveSet) TryAcquire(parentID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.m[parentID]; ok {
		return false
	}
	a.m[parentID] = struct{}{}
	return true
}

// Release removes parentID from the active set.
func (a *ActiveSet) Release(parentID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.m, parentID)
}

// Contains reports whether parentID currently has an active poller.
func (a *ActiveSet) Contains(parentID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.m[parentID]
	return ok
}

// Len reports the number of parents currently being polled.
func (a *ActiveSet) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.m)
}
