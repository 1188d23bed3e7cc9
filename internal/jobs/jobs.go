// Package jobs builds the full set of candidate polling jobs from a
// route/timing snapshot: one Job per trip, with its trip_id assigned
// via the shared tripid scheme and its trip_time anchored and rolled
// forward exactly like the scheduler does. Both the scheduler (to fan
// out polling opportunities) and the poller (to know which trips a
// parent route covers) build from this same function, mirroring the
// original service's shared generate_trip_id_timing_map helper used
// by both live_data_scheduler.py and live_data_receiver.py -- and
// fixing the calendar-mismatch bug flagged in the design notes by
// resolving trip_time with the scheduler's own roll-forward rule
// instead of unconditionally anchoring on "today".
package jobs

import (
	"strconv"
	"time"

	"github.com/trinityinblue/kia-live/internal/state"
	"github.com/trinityinblue/kia-live/internal/tripid"
)

// Build enumerates every (route_key, trip) pair in startTimes that
// has a known child_id and parent_id (route_keys are visited in map
// order, so the result has no particular order), and returns one Job
// per trip with trip_id assigned by the shared numbering
// scheme and trip_time anchored on today at HH:MM, rolled forward one
// day if that moment is not after now.
func Build(
	children map[string]int64,
	parents map[string]int64,
	startTimes map[string][]state.TripStartTime,
	now time.Time,
) []state.Job {
	routeKeys := make([]string, 0, len(startTimes))
	tripCount := map[string]int{}
	childIDStr := map[string]string{}
	for routeKey, trips := range startTimes {
		routeKeys = append(routeKeys, routeKey)
		tripCount[routeKey] = len(trips)
		if childID, ok := children[routeKey]; ok {
			childIDStr[routeKey] = strconv.FormatInt(childID, 10)
		}
	}

	tripIDsByRouteKey := tripid.Assign(routeKeys, tripCount, childIDStr)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	result := []state.Job{}
	for routeKey, trips := range startTimes {
		childID, ok := children[routeKey]
		if !ok {
			continue
		}
		parentID, ok := parents[routeKey]
		if !ok {
			continue
		}

		tripIDs := tripIDsByRouteKey[routeKey]
		for i, trip := range trips {
			if i >= len(tripIDs) {
				break
			}

			hh := trip.Start / 100
			mm := trip.Start % 100
			tripTime := today.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
			if !tripTime.After(now) {
				tripTime = tripTime.AddDate(0, 0, 1)
			}

			result = append(result, state.Job{
				TripID:   tripIDs[i],
				TripTime: tripTime,
				RouteID:  strconv.FormatInt(childID, 10),
				ParentID: parentID,
			})
		}
	}

	return result
}
