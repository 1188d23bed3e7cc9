// Package state holds the process-wide mutable state shared between
// the scheduler, receiver/poller and feed publisher: the route/timing
// maps, the scheduled-timings priority queue, and small thread-safe
// map helpers used throughout the ingestion engine.
package state

import (
	"container/heap"
	"sync"
	"time"
)

// Job describes one polling opportunity: a trip, anchored at its
// scheduled (calendar-resolved) start time, to be checked against a
// parent route's live data.
type Job struct {
	TripID   string
	TripTime time.Time
	RouteID  string // child_id, stringified
	ParentID int64
}

type timingEntry struct {
	fireTime time.Time
	seq      int64
	job      Job
}

type timingHeap []*timingEntry

func (h timingHeap) Len() int { return len(h) }
func (h timingHeap) Less(i, j int) bool {
	if h[i].fireTime.Equal(h[j].fireTime) {
		return h[i].seq < h[j].seq
	}
	return h[i].fireTime.Before(h[j].fireTime)
}
func (h timingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timingHeap) Push(x any)   { *h = append(*h, x.(*timingEntry)) }
func (h *timingHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// TimingQueue is a thread-safe min-priority queue of (fire_time, Job)
// pairs, ordered by fire_time with insertion-order tiebreak. Put()
// enforces that no two entries currently in the queue share the exact
// same fire_time: on collision, the fire_time is bumped forward by one
// second until it is unique.
type TimingQueue struct {
	mu   sync.Mutex
	h    timingHeap
	seq  int64
	used map[int64]int // unix seconds -> number of entries at that second
}

func NewTimingQueue() *TimingQueue {
	return &TimingQueue{used: map[int64]int{}}
}

// Put inserts a job at the given fire_time, bumping it forward by
// whole seconds until unique, and returns the fire_time actually used.
func (q *TimingQueue) Put(fireTime time.Time, job Job) time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.used[fireTime.Unix()] > 0 {
		fireTime = fireTime.Add(time.Second)
	}
	q.used[fireTime.Unix()]++

	q.seq++
	heap.Push(&q.h, &timingEntry{fireTime: fireTime, seq: q.seq, job: job})

	return fireTime
}

// PeekHead returns the earliest (fire_time, Job) without removing it.
func (q *TimingQueue) PeekHead() (time.Time, Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.h) == 0 {
		return time.Time{}, Job{}, false
	}
	e := q.h[0]
	return e.fireTime, e.job, true
}

// Get removes and returns the earliest (fire_time, Job).
func (q *TimingQueue) Get() (time.Time, Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.h) == 0 {
		return time.Time{}, Job{}, false
	}
	e := heap.Pop(&q.h).(*timingEntry)
	if q.used[e.fireTime.Unix()] <= 1 {
		delete(q.used, e.fireTime.Unix())
	} else {
		q.used[e.fireTime.Unix()]--
	}
	return e.fireTime, e.job, true
}

// Empty reports whether the queue currently holds no entries.
func (q *TimingQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h) == 0
}

// Len reports the number of entries currently queued.
func (q *TimingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}
