package store

import (
	"time"
)

const (
	StatusActive    = "Active"
	StatusNotActive = "Not Active"

	// RouteTTL is how long a route survives without being flown again.
	RouteTTL = 30 * 24 * time.Hour
	// ActiveWindow is how recently a route must have been flown to count as
	// active.
	ActiveWindow = 7 * 24 * time.Hour
)

type (
	// Route is an airport pair observed being flown by an airline flight.
	Route struct {
		Airline      string    `json:"airline"`
		FlightNumber string    `json:"flight_number"`
		ICAO24       string    `json:"icao24"`
		Source       string    `json:"source"`
		Destination  string    `json:"destination"`
		FirstSeen    time.Time `json:"first_seen"`
		LastSeen     time.Time `json:"last_seen"`
		Status       string    `json:"status"`
	}

	// Run is the outcome of one tracker pass.
	Run struct {
		Time         time.Time `json:"time"`
		Routes       int       `json:"routes"`
		ActivePlanes int       `json:"active_planes"`
		Recovered    int       `json:"recovered"`
		Removed      int       `json:"removed"`
	}

	Stats struct {
		Routes         int        `json:"routes"`
		ActivePlanes   int        `json:"active_planes"`
		RemovedLastRun int        `json:"removed_last_run"`
		LastRun        *time.Time `json:"last_run"`
	}
)

func routeStatus(lastSeen, now time.Time) string {
	if now.Sub(lastSeen) <= ActiveWindow {
		return StatusActive
	}
	return StatusNotActive
}
