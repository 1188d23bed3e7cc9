// Package poller implements the Receiver/Poller: it consumes due jobs
// from the shared timing queue and runs one concurrent poll loop per
// parent route, stopping each after two consecutive empty poll rounds.
// Grounded on the original service's live_data_receiver.py, translated
// from asyncio tasks on one event loop to goroutines.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/trinityinblue/kia-live/internal/feed"
	"github.com/trinityinblue/kia-live/internal/fetcher"
	"github.com/trinityinblue/kia-live/internal/jobs"
	"github.com/trinityinblue/kia-live/internal/state"
	"github.com/trinityinblue/kia-live/internal/transform"
)

const (
	tickInterval  = time.Second
	pollInterval  = 20 * time.Second
	maxEmptyTries = 2
)

// EventSink optionally persists completed stop events and vehicle
// positions as they're produced. Implementations must not block the
// poll loop significantly; a nil EventSink disables persistence.
type EventSink interface {
	RecordEntities(parentID int64, entities []*gtfsproto.FeedEntity)
}

// Receiver drains the shared timing queue and spawns at most one
// poller per parent_id at a time.
type Receiver struct {
	queue       *state.TimingQueue
	timings     *state.RouteTimings
	fetcher     *fetcher.Fetcher
	transformer *transform.Transformer
	publisher   *feed.Publisher
	active      *ActiveSet
	sink        EventSink

	// Now defaults to time.Now; overridable for tests.
	Now func() time.Time

	// PollInterval defaults to pollInterval; overridable for tests so a
	// quiescence scenario doesn't have to wait out the real interval.
	PollInterval time.Duration

	wg sync.WaitGroup
}

func New(
	queue *state.TimingQueue,
	timings *state.RouteTimings,
	f *fetcher.Fetcher,
	t *transform.Transformer,
	p *feed.Publisher,
	sink EventSink,
) *Receiver {
	return &Receiver{
		queue:        queue,
		timings:      timings,
		fetcher:      f,
		transformer:  t,
		publisher:    p,
		active:       NewActiveSet(),
		sink:         sink,
		Now:          time.Now,
		PollInterval: pollInterval,
	}
}

// ActiveParents exposes the active set for diagnostics/tests.
func (r *Receiver) ActiveParents() *ActiveSet { return r.active }

// Run drains scheduled jobs and spawns pollers until ctx is canceled,
// then waits for all in-flight pollers to finish.
func (r *Receiver) Run(ctx context.Context) {
	defer r.wg.Wait()

	for {
		if ctx.Err() != nil {
			return
		}

		if r.queue.Empty() {
			if !sleep(ctx, tickInterval) {
				return
			}
			continue
		}

		fireTime, _, ok := r.queue.PeekHead()
		if !ok {
			continue
		}

		if r.Now().Before(fireTime) {
			if !sleep(ctx, tickInterval) {
				return
			}
			continue
		}

		_, job, ok := r.queue.Get()
		if !ok {
			continue
		}

		if !r.active.TryAcquire(job.ParentID) {
			// A poller already covers this parent; drop silently.
			continue
		}

		r.wg.Add(1)
		go func(parentID int64) {
			defer r.wg.Done()
			r.pollParentUntilDone(ctx, parentID)
		}(job.ParentID)
	}
}

// pollParentUntilDone repeatedly fetches live data for parentID,
// transforms it against every trip the parent covers, and publishes
// the accumulated entities. It stops (and releases parentID from the
// active set) after two consecutive poll rounds produce no matching
// entity.
func (r *Receiver) pollParentUntilDone(ctx context.Context, parentID int64) {
	defer r.active.Release(parentID)

	log.Printf("poller: started for parent_id=%d", parentID)

	emptyTries := 0
	for {
		if ctx.Err() != nil {
			log.Printf("poller: context canceled, stopping parent_id=%d", parentID)
			return
		}

		data := r.fetcher.FetchRouteData(ctx, parentID)

		if len(data) == 0 {
			emptyTries++
		} else {
			now := r.Now()
			candidates := jobs.Build(r.timings.ChildIDs(), r.timings.ParentIDs(), r.timings.StartTimes(), now)

			var allEntities []*gtfsproto.FeedEntity
			found := false
			for _, job := range candidates {
				if job.ParentID != parentID {
					continue
				}
				entities, matched := r.transformer.Transform(data, transform.Job{
					TripID:   job.TripID,
					TripTime: job.TripTime,
					RouteID:  job.RouteID,
				})
				if matched {
					found = true
				}
				allEntities = entities // Transform returns the full buffer snapshot each call.
			}

			if found {
				r.publisher.Update(allEntities)
				if r.sink != nil {
					r.sink.RecordEntities(parentID, allEntities)
				}
				emptyTries = 0
			} else {
				emptyTries++
			}
		}

		if emptyTries >= maxEmptyTries {
			log.Printf("poller: quiescent after %d empty tries, stopping parent_id=%d", emptyTries, parentID)
			return
		}

		if !sleep(ctx, r.PollInterval) {
			return
		}
	}
}

// sleep waits for d or ctx cancellation, returning false if canceled.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
