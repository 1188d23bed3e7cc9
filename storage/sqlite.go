package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the local relational store named in §6: a single
// on-disk (or in-memory) SQLite database holding one bundle record per
// built version plus the completed_stop_times and vehicle_positions logs.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	sourceName := ":memory:"
	if path != "" {
		sourceName = path
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS bundle (
    version TEXT PRIMARY KEY,
    sha256 TEXT NOT NULL,
    built_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS completed_stop_times (
    stop_id TEXT NOT NULL,
    trip_id TEXT NOT NULL,
    route_id TEXT NOT NULL,
    date TEXT NOT NULL,
    actual_arrival TEXT,
    actual_departure TEXT,
    scheduled_arrival TEXT,
    scheduled_departure TEXT,
    PRIMARY KEY (stop_id, trip_id, date)
);

CREATE TABLE IF NOT EXISTS vehicle_positions (
    trip_id TEXT NOT NULL,
    vehicle_id TEXT NOT NULL,
    route_id TEXT NOT NULL,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    PRIMARY KEY (trip_id, timestamp)
);
`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveBundleMetadata(meta BundleMetadata) error {
	_, err := s.db.Exec(`
INSERT INTO bundle (version, sha256, built_at)
VALUES (?, ?, ?)
ON CONFLICT (version) DO UPDATE SET
    sha256 = excluded.sha256,
    built_at = excluded.built_at
`, meta.Version, meta.SHA256, meta.BuiltAt)
	if err != nil {
		return fmt.Errorf("saving bundle metadata: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestBundleMetadata() (BundleMetadata, bool, error) {
	var meta BundleMetadata
	err := s.db.QueryRow(`
SELECT version, sha256, built_at
FROM bundle
ORDER BY built_at DESC
LIMIT 1
`).Scan(&meta.Version, &meta.SHA256, &meta.BuiltAt)
	if err == sql.ErrNoRows {
		return BundleMetadata{}, false, nil
	}
	if err != nil {
		return BundleMetadata{}, false, fmt.Errorf("querying latest bundle metadata: %w", err)
	}
	return meta, true, nil
}

func (s *SQLiteStore) RecordCompletedStopTime(rec CompletedStopTime) error {
	_, err := s.db.Exec(`
INSERT INTO completed_stop_times (
    stop_id, trip_id, route_id, date,
    actual_arrival, actual_departure, scheduled_arrival, scheduled_departure
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (stop_id, trip_id, date) DO NOTHING
`,
		rec.StopID, rec.TripID, rec.RouteID, rec.Date,
		rec.ActualArrival, rec.ActualDeparture, rec.ScheduledArrival, rec.ScheduledDeparture,
	)
	if err != nil {
		return fmt.Errorf("inserting completed stop time: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordVehiclePosition(rec VehiclePosition) error {
	_, err := s.db.Exec(`
INSERT INTO vehicle_positions (trip_id, vehicle_id, route_id, latitude, longitude, timestamp)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (trip_id, timestamp) DO NOTHING
`,
		rec.TripID, rec.VehicleID, rec.RouteID, rec.Latitude, rec.Longitude, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting vehicle position: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
