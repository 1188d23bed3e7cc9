// Package storage persists the two things the spec calls out as
// optional local state (§6 "Persisted state"): a record of the latest
// built static bundle, and a trailing log of completed stop times and
// vehicle positions observed while polling. It is grounded on the
// teacher's storage package (sqlite.go/postgres.go/memory.go), trimmed
// down from the teacher's full GTFS query engine -- this service never
// answers departure-board queries, it only needs to know "what did we
// last build" and "what did we last see" -- and extended with the two
// tables named in the spec, adapted from the original service's
// src/shared/db.py schema.
package storage

import "time"

// Store is implemented by each backend (SQLite, Postgres, in-memory).
// All writes are idempotent: re-recording the same (stop, trip, date)
// / (trip, timestamp) pair is a no-op, and re-saving the same bundle
// version overwrites that version's record.
type Store interface {
	// SaveBundleMetadata records that a static bundle with this
	// version/hash was built. Replaces any previous record for the
	// same version.
	SaveBundleMetadata(meta BundleMetadata) error

	// LatestBundleMetadata returns the saved bundle record with the
	// latest BuiltAt (MemoryStore keeps only the most recently saved
	// record and returns that), or ok=false if none has been saved yet.
	LatestBundleMetadata() (meta BundleMetadata, ok bool, err error)

	// RecordCompletedStopTime persists an observed stop visit.
	// Ignored on conflict with an existing (stop_id, trip_id, date).
	RecordCompletedStopTime(rec CompletedStopTime) error

	// RecordVehiclePosition persists an observed vehicle position.
	// Ignored on conflict with an existing (trip_id, timestamp).
	RecordVehiclePosition(rec VehiclePosition) error

	Close() error
}

// BundleMetadata describes one build of the static GTFS bundle.
type BundleMetadata struct {
	Version string
	SHA256  string
	BuiltAt time.Time
}

// CompletedStopTime is one observed visit of a vehicle to a stop,
// mirroring completed_stop_times from §6 of the spec.
type CompletedStopTime struct {
	StopID             string
	TripID             string
	RouteID            string
	Date               string // YYYYMMDD
	ActualArrival      string // HH:MM:SS, empty if not yet observed
	ActualDeparture    string
	ScheduledArrival   string
	ScheduledDeparture string
}

// VehiclePosition is one observed vehicle fix, mirroring
// vehicle_positions from §6 of the spec.
type VehiclePosition struct {
	TripID    string
	VehicleID string
	RouteID   string
	Latitude  float64
	Longitude float64
	Timestamp time.Time
}
