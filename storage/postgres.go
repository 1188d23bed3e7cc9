package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore is the shared-deployment alternative to SQLiteStore,
// same schema and idempotency guarantees, for installations that
// already run a Postgres instance for other services.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a Postgres-backed Store using the given
// connection string. If clearDB is true, the tables are dropped and
// recreated on startup -- only useful for tests.
func NewPostgresStore(connStr string, clearDB bool) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if clearDB {
		if _, err := db.Exec(`
DROP TABLE IF EXISTS bundle;
DROP TABLE IF EXISTS completed_stop_times;
DROP TABLE IF EXISTS vehicle_positions;
`); err != nil {
			db.Close()
			return nil, fmt.Errorf("clearing tables: %w", err)
		}
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS bundle (
    version TEXT PRIMARY KEY,
    sha256 TEXT NOT NULL,
    built_at TIMESTAMPTZ NOT NULL
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
    latitude DOUBLE PRECISION NOT NULL,
    longitude DOUBLE PRECISION NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (trip_id, timestamp)
);
`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveBundleMetadata(meta BundleMetadata) error {
	_, err := s.db.Exec(`
INSERT INTO bundle (version, sha256, built_at)
VALUES ($1, $2, $3)
ON CONFLICT (version) DO UPDATE SET
    sha256 = excluded.sha256,
    built_at = excluded.built_at
`, meta.Version, meta.SHA256, meta.BuiltAt)
	if err != nil {
		return fmt.Errorf("saving bundle metadata: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestBundleMetadata() (BundleMetadata, bool, error) {
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

func (s *PostgresStore) RecordCompletedStopTime(rec CompletedStopTime) error {
	_, err := s.db.Exec(`
INSERT INTO completed_stop_times (
    stop_id, trip_id, route_id, date,
    actual_arrival, actual_departure, scheduled_arrival, scheduled_departure
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
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

func (s *PostgresStore) RecordVehiclePosition(rec VehiclePosition) error {
	_, err := s.db.Exec(`
INSERT INTO vehicle_positions (trip_id, vehicle_id, route_id, latitude, longitude, timestamp)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (trip_id, timestamp) DO NOTHING
`,
		rec.TripID, rec.VehicleID, rec.RouteID, rec.Latitude, rec.Longitude, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting vehicle position: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
