package storage

import (
	"log"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// Sink adapts a Store to poller.Receiver's EventSink interface,
// translating each published FeedEntity into persisted rows. A
// storage failure is logged and otherwise ignored -- per §7, nothing
// in the ingestion pipeline may be taken down by a persistence error.
type Sink struct {
	store Store
	now   func() time.Time
}

func NewSink(store Store) *Sink {
	return &Sink{store: store, now: time.Now}
}

func (s *Sink) RecordEntities(parentID int64, entities []*gtfsproto.FeedEntity) {
	date := s.now().Format("20060102")

	for _, e := range entities {
		if tu := e.GetTripUpdate(); tu != nil {
			s.recordStopTimes(tu, date)
		}
		if vp := e.GetVehicle(); vp != nil {
			s.recordVehiclePosition(vp)
		}
	}
}

func (s *Sink) recordStopTimes(tu *gtfsproto.TripUpdate, date string) {
	tripID := tu.GetTrip().GetTripId()
	routeID := tu.GetTrip().GetRouteId()

	for _, stu := range tu.GetStopTimeUpdate() {
		schedArrival, actualArrival := splitSchedActual(stu.GetArrival())
		schedDeparture, actualDeparture := splitSchedActual(stu.GetDeparture())
		if actualArrival == "" && actualDeparture == "" {
			continue
		}

		rec := CompletedStopTime{
			StopID:             stu.GetStopId(),
			TripID:             tripID,
			RouteID:            routeID,
			Date:               date,
			ActualArrival:      actualArrival,
			ActualDeparture:    actualDeparture,
			ScheduledArrival:   schedArrival,
			ScheduledDeparture: schedDeparture,
		}
		if err := s.store.RecordCompletedStopTime(rec); err != nil {
			log.Printf("storage: recording completed stop time for trip_id=%s: %v", tripID, err)
		}
	}
}

func (s *Sink) recordVehiclePosition(vp *gtfsproto.VehiclePosition) {
	pos := vp.GetPosition()
	rec := VehiclePosition{
		TripID:    vp.GetTrip().GetTripId(),
		VehicleID: vp.GetVehicle().GetId(),
		RouteID:   vp.GetTrip().GetRouteId(),
		Latitude:  float64(pos.GetLatitude()),
		Longitude: float64(pos.GetLongitude()),
		Timestamp: time.Unix(int64(vp.GetTimestamp()), 0),
	}
	if rec.TripID == "" || vp.Timestamp == nil {
		return
	}
	if err := s.store.RecordVehiclePosition(rec); err != nil {
		log.Printf("storage: recording vehicle position for trip_id=%s: %v", rec.TripID, err)
	}
}

// splitSchedActual separates a StopTimeEvent into its scheduled and
// actual clock times. transform.Transformer only sets Delay once an
// actual report has displaced the scheduled time, so an event with no
// Delay is scheduled-only -- nothing has actually been observed yet.
func splitSchedActual(ev *gtfsproto.TripUpdate_StopTimeEvent) (scheduled, actual string) {
	if ev == nil || ev.Time == nil {
		return "", ""
	}
	t := ev.GetTime()
	if ev.Delay == nil {
		return formatClock(t), ""
	}
	return formatClock(t - int64(ev.GetDelay())), formatClock(t)
}

func formatClock(unix int64) string {
	return time.Unix(unix, 0).Local().Format("15:04:05")
}
