// Package transform folds raw upstream stop records into GTFS
// Realtime FeedEntity messages: one TripUpdate+VehiclePosition pair
// per vehicle matching a trip's scheduled start. Grounded on the
// MobilityData gtfs-realtime-bindings usage shown in the teacher's
// parse/realtime.go (same package, opposite direction: that file
// decodes a feed, this one builds one).
package transform

import (
	"strconv"
	"strings"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/trinityinblue/kia-live/internal/fetcher"
	"github.com/trinityinblue/kia-live/internal/state"
)

const matchWindow = 2 * time.Minute

// Job is the subset of state.Job the transformer needs to match stop
// records to a trip.
type Job struct {
	TripID   string
	TripTime time.Time
	RouteID  string
}

// Transformer holds the process-wide entity buffer: trip_id ->
// most-recently-built FeedEntity. Before emitting entities for a
// trip_id, any previous entry for that trip_id is dropped, so the
// buffer always reflects the latest poll for each trip while still
// carrying forward entities for every *other* trip seen so far --
// otherwise a vehicle would vanish from the feed between polls of
// different trips sharing a parent route.
type Transformer struct {
	buffer   *state.KeyedStore[*gtfsproto.FeedEntity]
	location *time.Location
}

func New(location *time.Location) *Transformer {
	if location == nil {
		location = time.Local
	}
	return &Transformer{
		buffer:   state.NewKeyedStore[*gtfsproto.FeedEntity](),
		location: location,
	}
}

// Transform matches api_stops against job, builds (at most) one
// FeedEntity per vehicle, stores it in the buffer under job.TripID,
// and returns the current values of the whole buffer -- i.e. not just
// this trip's entities, but every trip seen so far by this
// Transformer instance. The second return value reports whether this
// call itself matched a vehicle for job.TripID -- callers that need a
// per-round, per-job signal (e.g. the poller's quiescence check) must
// use it instead of the length of the returned buffer, since the
// buffer carries forward every other trip_id this Transformer has
// ever matched.
func (t *Transformer) Transform(apiStops []fetcher.StopRecord, job Job) ([]*gtfsproto.FeedEntity, bool) {
	type vehicleGroup struct {
		detail fetcher.VehicleDetail
		stops  []fetcher.StopRecord
	}

	groups := map[string]*vehicleGroup{}
	order := []string{}

	for _, stop := range apiStops {
		if stop.RouteID.String() != job.RouteID {
			continue
		}

		for _, vehicle := range stop.VehicleDetails {
			vehicleID := vehicle.VehicleID
			if vehicleID == "" {
				continue
			}

			schTripTime, ok := parseHHMMOnDate(vehicle.SchTripStartTime, job.TripTime)
			if !ok {
				continue
			}
			if absDuration(schTripTime.Sub(job.TripTime)) > matchWindow {
				continue
			}

			g, found := groups[vehicleID]
			if !found {
				g = &vehicleGroup{detail: vehicle}
				groups[vehicleID] = g
				order = append(order, vehicleID)
			}
			g.stops = append(g.stops, stop)
		}
	}

	// Drop the previous entity for this trip before (re-)emitting.
	t.buffer.Pop(job.TripID)

	matched := false
	for _, vehicleID := range order {
		g := groups[vehicleID]
		entity := t.buildEntity(vehicleID, g.detail, job, g.stops)
		if entity != nil {
			t.buffer.Set(job.TripID, entity)
			matched = true
		}
	}

	return t.buffer.Values(), matched
}

func (t *Transformer) buildEntity(
	vehicleID string,
	vehicle fetcher.VehicleDetail,
	job Job,
	stops []fetcher.StopRecord,
) *gtfsproto.FeedEntity {
	tripUpdate := &gtfsproto.TripUpdate{
		Trip: &gtfsproto.TripDescriptor{
			TripId:  proto.String(job.TripID),
			RouteId: proto.String(job.RouteID),
		},
		Vehicle: &gtfsproto.VehicleDescriptor{
			Id:    proto.String(vehicleID),
			Label: proto.String(vehicle.VehicleNumber),
		},
	}

	for _, stop := range stops {
		schArrival, hasSchArrival := t.parseLocalTime(vehicle.SchArrivalTime)
		if !hasSchArrival {
			continue
		}
		schDeparture, hasSchDeparture := t.parseLocalTime(vehicle.SchDepartureTime)
		actualArrival, hasActualArrival := t.parseLocalTime(vehicle.ActualArrivalTime)
		actualDeparture, hasActualDeparture := t.parseLocalTime(vehicle.ActualDepartureTime)

		stu := &gtfsproto.TripUpdate_StopTimeUpdate{
			StopId: proto.String(stop.StationID),
		}

		arrivalTime := schArrival
		if hasActualArrival {
			arrivalTime = actualArrival
		}
		stu.Arrival = &gtfsproto.TripUpdate_StopTimeEvent{
			Time: proto.Int64(arrivalTime),
		}
		if hasActualArrival {
			stu.Arrival.Delay = proto.Int32(int32(actualArrival - schArrival))
		}

		if hasSchDeparture {
			departureTime := schDeparture
			if hasActualDeparture {
				departureTime = actualDeparture
			}
			stu.Departure = &gtfsproto.TripUpdate_StopTimeEvent{
				Time: proto.Int64(departureTime),
			}
			if hasActualDeparture {
				stu.Departure.Delay = proto.Int32(int32(actualDeparture - schDeparture))
			}
		}

		tripUpdate.StopTimeUpdate = append(tripUpdate.StopTimeUpdate, stu)
	}

	lat, _ := strconv.ParseFloat(vehicle.CenterLat, 32)
	lon, _ := strconv.ParseFloat(vehicle.CenterLong, 32)
	bearing, _ := strconv.ParseFloat(vehicle.Heading, 32)

	vehiclePosition := &gtfsproto.VehiclePosition{
		Trip:    tripUpdate.Trip,
		Vehicle: tripUpdate.Vehicle,
		Position: &gtfsproto.Position{
			Latitude:  proto.Float32(float32(lat)),
			Longitude: proto.Float32(float32(lon)),
			Bearing:   proto.Float32(float32(bearing)),
		},
	}
	if refresh, err := time.ParseInLocation("02-01-2006 15:04:05", vehicle.LastRefreshOn, t.location); err == nil {
		vehiclePosition.Timestamp = proto.Uint64(uint64(refresh.Unix()))
	}

	return &gtfsproto.FeedEntity{
		Id:         proto.String("veh_" + vehicleID),
		TripUpdate: tripUpdate,
		Vehicle:    vehiclePosition,
	}
}

// parseHHMMOnDate parses "HH:MM" and anchors it on anchor's calendar
// date (in anchor's own location), matching the date the job's
// trip_time was already resolved to -- rather than "today" -- per the
// scheduler/poller calendar-anchoring fix described in the design
// notes.
func parseHHMMOnDate(hhmm string, anchor time.Time) (time.Time, bool) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return time.Time{}, false
	}
	loc := anchor.Location()
	return time.Date(anchor.Year(), anchor.Month(), anchor.Day(), h, m, 0, 0, loc), true
}

// parseLocalTime parses "HH:MM" anchored on the transformer's current
// local date/time, rolling forward a day if the result would be more
// than 6 hours in the past. Returns unix seconds.
func (t *Transformer) parseLocalTime(hhmm string) (int64, bool) {
	if hhmm == "" || !strings.Contains(hhmm, ":") {
		return 0, false
	}
	parts := strings.SplitN(hhmm, ":", 2)
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, false
	}

	now := time.Now().In(t.location)
	candidate := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, t.location)
	if candidate.Before(now.Add(-6 * time.Hour)) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate.Unix(), true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
