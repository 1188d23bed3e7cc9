// Package scheduler implements the daily trip-timing scheduler:
// populate_schedule() enumerates every known trip and fans out
// 2*Q+1 polling opportunities around its scheduled start, and
// Run() repopulates once a day in the 00:10-00:15 window.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/trinityinblue/kia-live/internal/jobs"
	"github.com/trinityinblue/kia-live/internal/state"
)

// Scheduler writes (fire_time, Job) tuples into the shared timing
// queue, using the current snapshot of routes_children/routes_parent/
// start_times.
type Scheduler struct {
	timings       *state.RouteTimings
	queue         *state.TimingQueue
	queryInterval time.Duration
	queryAmount   int

	// Now defaults to time.Now and exists so tests can control the
	// scheduler's notion of the present.
	Now func() time.Time
}

func New(timings *state.RouteTimings, queue *state.TimingQueue, queryInterval time.Duration, queryAmount int) *Scheduler {
	return &Scheduler{
		timings:       timings,
		queue:         queue,
		queryInterval: queryInterval,
		queryAmount:   queryAmount,
		Now:           time.Now,
	}
}

// PopulateSchedule enumerates every (route_key, trip) pair in the
// current start_times snapshot and queues 2*queryAmount+1 polling
// opportunities for each, anchored around the trip's resolved start.
func (s *Scheduler) PopulateSchedule() {
	now := s.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayAfterTomorrow := today.AddDate(0, 0, 2)

	candidates := jobs.Build(s.timings.ChildIDs(), s.timings.ParentIDs(), s.timings.StartTimes(), now)

	for _, job := range candidates {
		for offset := -s.queryAmount; offset <= s.queryAmount; offset++ {
			fireTime := job.TripTime.Add(time.Duration(offset) * s.queryInterval)
			if fireTime.Before(today) || !fireTime.Before(dayAfterTomorrow) {
				continue
			}
			s.queue.Put(fireTime, job)
		}
	}
}

// Run populates the schedule once immediately, then loops: it checks
// every 30s whether local wall-clock has entered the 00:10-00:15
// window and, if so, repopulates and sleeps an hour to avoid
// re-triggering within the same window.
func (s *Scheduler) Run(ctx context.Context) {
	s.PopulateSchedule()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.Now()
			if now.Hour() == 0 && now.Minute() >= 10 && now.Minute() < 15 {
				log.Printf("scheduler: running daily repopulate at %s", now.Format(time.RFC3339))
				s.PopulateSchedule()

				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Hour):
				}
			}
		}
	}
}
