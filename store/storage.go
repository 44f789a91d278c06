package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/flights"
)

var (
	log = logrus.WithField("module", "store")
)

type Storage struct {
	db *sql.DB
}

// Open initializes the SQLite database and creates tables
func Open(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)

	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}
	log.WithField("path", dbPath).Info("storage opened")
	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS planes (
		icao24 TEXT PRIMARY KEY,
		callsign TEXT NOT NULL,
		airline TEXT NOT NULL,
		flight_number TEXT NOT NULL,
		origin TEXT NOT NULL,
		origin_name TEXT NOT NULL,
		origin_lat REAL NOT NULL,
		origin_lon REAL NOT NULL,
		last_lat REAL NOT NULL,
		last_lon REAL NOT NULL,
		first_seen INTEGER NOT NULL,
		last_updated INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS routes (
		airline TEXT NOT NULL,
		flight_number TEXT NOT NULL,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		icao24 TEXT NOT NULL,
		first_seen INTEGER NOT NULL,
		last_seen INTEGER NOT NULL,
		PRIMARY KEY (airline, flight_number, source, destination)
	);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time INTEGER NOT NULL,
		routes INTEGER NOT NULL,
		active_planes INTEGER NOT NULL,
		recovered INTEGER NOT NULL DEFAULT 0,
		removed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_routes_last_seen ON routes(last_seen);
	CREATE INDEX IF NOT EXISTS idx_runs_time ON runs(time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SavePlanes replaces the set of active aircraft.
func (s *Storage) SavePlanes(planes map[string]flights.ActiveFlight) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM planes`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO planes (
			icao24, callsign, airline, flight_number, origin, origin_name,
			origin_lat, origin_lon, last_lat, last_lon, first_seen, last_updated
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range planes {
		_, err := stmt.Exec(
			p.ICAO24, p.Callsign, p.Airline, p.FlightNumber, p.Origin, p.OriginName,
			p.OriginCoord.Lat(), p.OriginCoord.Lon(), p.LastCoord.Lat(), p.LastCoord.Lon(),
			p.FirstSeen.Unix(), p.LastUpdated.Unix(),
		)
		if err != nil {
			return fmt.Errorf("error saving plane %s: %w", p.ICAO24, err)
		}
	}
	return tx.Commit()
}

// Planes loads the active aircraft keyed by ICAO24.
func (s *Storage) Planes() (map[string]flights.ActiveFlight, error) {
	rows, err := s.db.Query(`
		SELECT icao24, callsign, airline, flight_number, origin, origin_name,
			origin_lat, origin_lon, last_lat, last_lon, first_seen, last_updated
		FROM planes
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	planes := make(map[string]flights.ActiveFlight)
	for rows.Next() {
		var p flights.ActiveFlight
		var originLat, originLon, lastLat, lastLon float64
		var firstSeen, lastUpdated int64
		if err := rows.Scan(
			&p.ICAO24, &p.Callsign, &p.Airline, &p.FlightNumber, &p.Origin, &p.OriginName,
			&originLat, &originLon, &lastLat, &lastLon, &firstSeen, &lastUpdated,
		); err != nil {
			return nil, err
		}
		p.OriginCoord = dataset.Coord{originLat, originLon}
		p.LastCoord = dataset.Coord{lastLat, lastLon}
		p.FirstSeen = time.Unix(firstSeen, 0).UTC()
		p.LastUpdated = time.Unix(lastUpdated, 0).UTC()
		planes[p.ICAO24] = p
	}
	return planes, rows.Err()
}

// UpsertRoute records a flown route, keeping the first sighting of an
// already known one.
func (s *Storage) UpsertRoute(r Route) error {
	_, err := s.db.Exec(`
		INSERT INTO routes (airline, flight_number, source, destination, icao24, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (airline, flight_number, source, destination)
		DO UPDATE SET icao24 = excluded.icao24, last_seen = excluded.last_seen
	`, r.Airline, r.FlightNumber, r.Source, r.Destination, r.ICAO24, r.FirstSeen.Unix(), r.LastSeen.Unix())
	return err
}

// Routes lists stored routes, most recently seen first, with their status
// evaluated at now.
func (s *Storage) Routes(now time.Time) ([]Route, error) {
	rows, err := s.db.Query(`
		SELECT airline, flight_number, source, destination, icao24, first_seen, last_seen
		FROM routes
		ORDER BY last_seen DESC, airline, flight_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routes := make([]Route, 0)
	for rows.Next() {
		var r Route
		var firstSeen, lastSeen int64
		if err := rows.Scan(&r.Airline, &r.FlightNumber, &r.Source, &r.Destination, &r.ICAO24, &firstSeen, &lastSeen); err != nil {
			return nil, err
		}
		r.FirstSeen = time.Unix(firstSeen, 0).UTC()
		r.LastSeen = time.Unix(lastSeen, 0).UTC()
		r.Status = routeStatus(r.LastSeen, now)
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

func (s *Storage) RouteCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM routes`).Scan(&count)
	return count, err
}

// ExpireRoutes removes routes not seen since cutoff and reports how many
// were removed.
func (s *Storage) ExpireRoutes(cutoff time.Time) (int, error) {
	result, err := s.db.Exec(`DELETE FROM routes WHERE last_seen < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (s *Storage) RecordRun(run Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (time, routes, active_planes, recovered, removed)
		VALUES (?, ?, ?, ?, ?)
	`, run.Time.Unix(), run.Routes, run.ActivePlanes, run.Recovered, run.Removed)
	return err
}

// PruneRuns drops run history older than cutoff.
func (s *Storage) PruneRuns(cutoff time.Time) error {
	_, err := s.db.Exec(`DELETE FROM runs WHERE time < ?`, cutoff.Unix())
	return err
}

// LastRun returns the most recent run; found is false before the first one.
func (s *Storage) LastRun() (run Run, found bool, err error) {
	var t int64
	err = s.db.QueryRow(`
		SELECT time, routes, active_planes, recovered, removed
		FROM runs ORDER BY time DESC, id DESC LIMIT 1
	`).Scan(&t, &run.Routes, &run.ActivePlanes, &run.Recovered, &run.Removed)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	run.Time = time.Unix(t, 0).UTC()
	return run, true, nil
}

// RunTotals sums recovered and removed routes over runs since the given time.
func (s *Storage) RunTotals(since time.Time) (recovered int, removed int, err error) {
	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(recovered), 0), COALESCE(SUM(removed), 0)
		FROM runs WHERE time >= ?
	`, since.Unix()).Scan(&recovered, &removed)
	return
}

// Stats summarizes the latest run.
func (s *Storage) Stats() (Stats, error) {
	run, found, err := s.LastRun()
	if err != nil {
		return Stats{}, err
	}
	if !found {
		return Stats{}, nil
	}
	t := run.Time
	return Stats{
		Routes:         run.Routes,
		ActivePlanes:   run.ActivePlanes,
		RemovedLastRun: run.Removed,
		LastRun:        &t,
	}, nil
}
