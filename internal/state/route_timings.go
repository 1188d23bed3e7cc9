package state

import "sync"

// TripStartTime is one entry of start_times[route_key]: a trip's
// scheduled start (as an HHMM integer, which may describe a
// past-midnight trip on the *previous* service day) and its duration.
type TripStartTime struct {
	Start    int // HHMM, e.g. 450 for 04:50
	Duration int // minutes
}

// RouteTimings holds routes_children, routes_parent and start_times
// together. Per the shared-lifecycle invariant, the three maps are
// repopulated once a day by the external static pipeline and MUST be
// replaced atomically as a group, under a single write lock, so that
// readers never observe a half-updated view (e.g. a child_id resolved
// against yesterday's start_times).
type RouteTimings struct {
	mu         sync.RWMutex
	childByKey map[string]int64
	parentByKey map[string]int64
	startTimes map[string][]TripStartTime
}

func NewRouteTimings() *RouteTimings {
	return &RouteTimings{
		childByKey:  map[string]int64{},
		parentByKey: map[string]int64{},
		startTimes:  map[string][]TripStartTime{},
	}
}

// Replace atomically clears and refills all three maps.
func (r *RouteTimings) Replace(
	children map[string]int64,
	parents map[string]int64,
	startTimes map[string][]TripStartTime,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.childByKey = copyInt64Map(children)
	r.parentByKey = copyInt64Map(parents)

	st := make(map[string][]TripStartTime, len(startTimes))
	for k, v := range startTimes {
		cp := make([]TripStartTime, len(v))
		copy(cp, v)
		st[k] = cp
	}
	r.startTimes = st
}

// ChildID resolves a route_key's child_id.
func (r *RouteTimings) ChildID(routeKey string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.childByKey[routeKey]
	return v, ok
}

// ParentID resolves a route_key's parent_id.
func (r *RouteTimings) ParentID(routeKey string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.parentByKey[routeKey]
	return v, ok
}

// StartTimes returns a snapshot copy of the full start_times map.
func (r *RouteTimings) StartTimes() map[string][]TripStartTime {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]TripStartTime, len(r.startTimes))
	for k, v := range r.startTimes {
		cp := make([]TripStartTime, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// ChildIDs returns a snapshot copy of the route_key -> child_id map.
func (r *RouteTimings) ChildIDs() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyInt64Map(r.childByKey)
}

// ParentIDs returns a snapshot copy of the route_key -> parent_id map.
func (r *RouteTimings) ParentIDs() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyInt64Map(r.parentByKey)
}

func copyInt64Map(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
