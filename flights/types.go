package flights

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vatsimnerd/routemap/dataset"
)

type (
	// ActiveFlight is an aircraft currently airborne, keyed by its ICAO24
	// transponder address.
	ActiveFlight struct {
		ICAO24       string        `json:"icao24"`
		Callsign     string        `json:"callsign"`
		Airline      string        `json:"airline"`
		FlightNumber string        `json:"flight_number"`
		Origin       string        `json:"origin,omitempty"`
		OriginName   string        `json:"origin_name,omitempty"`
		OriginCoord  dataset.Coord `json:"origin_coord"`
		LastCoord    dataset.Coord `json:"last_coord"`
		FirstSeen    time.Time     `json:"first_seen"`
		LastUpdated  time.Time     `json:"last_updated"`
	}

	// VFlight is the loosely typed record found in the active-planes feed.
	VFlight struct {
		ICAO24       string     `json:"icao24"`
		Callsign     string     `json:"callsign"`
		Airline      string     `json:"airline"`
		FlightNumber string     `json:"flight_number"`
		Origin       string     `json:"origin"`
		OriginName   string     `json:"origin_name"`
		OriginCoord  []*float64 `json:"origin_coord"`
		LastCoord    []*float64 `json:"last_coord"`
		FirstSeen    string     `json:"first_seen"`
		LastUpdated  string     `json:"last_updated"`
	}
)

const (
	dateLayout = "2006-01-02T15:04:05"
)

func (f ActiveFlight) NE(o ActiveFlight) bool {
	return f != o
}

// Code is the label shown for the aircraft: the callsign when known,
// otherwise airline code and flight number.
func (f ActiveFlight) Code() string {
	if cs := strings.TrimSpace(f.Callsign); cs != "" {
		return cs
	}
	return f.Airline + f.FlightNumber
}

// Duration is the time between first and last sighting, 0 if unknown.
func (f ActiveFlight) Duration() time.Duration {
	if f.FirstSeen.IsZero() || f.LastUpdated.IsZero() || f.LastUpdated.Before(f.FirstSeen) {
		return 0
	}
	return f.LastUpdated.Sub(f.FirstSeen)
}

// Describe builds the tooltip: code, airline, duration and origin, skipping
// empty parts.
func (f ActiveFlight) Describe() string {
	duration := ""
	if !f.FirstSeen.IsZero() && !f.LastUpdated.IsZero() && !f.LastUpdated.Before(f.FirstSeen) {
		duration = formatDuration(f.Duration())
	}
	origin := f.OriginName
	if origin == "" {
		origin = f.Origin
	}

	parts := make([]string, 0, 4)
	for _, part := range []string{f.Code(), f.Airline, duration, origin} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

func formatDuration(d time.Duration) string {
	mins := int(d / time.Minute)
	h := mins / 60
	m := mins % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func parseCoord(v []*float64) (dataset.Coord, error) {
	if len(v) < 2 || v[0] == nil || v[1] == nil {
		return dataset.Coord{}, fmt.Errorf("coordinate is missing")
	}
	c := dataset.Coord{*v[0], *v[1]}
	if !c.Valid() {
		return dataset.Coord{}, fmt.Errorf("coordinate %v is out of range", c)
	}
	return c, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if len(s) < 19 {
		return time.Time{}, fmt.Errorf("invalid timestamp %s", s)
	}
	return time.Parse(dateLayout, s[:19])
}

func makeFlight(icao24 string, v VFlight) (ActiveFlight, error) {
	last, err := parseCoord(v.LastCoord)
	if err != nil {
		return ActiveFlight{}, fmt.Errorf("error parsing last_coord: %v", err)
	}

	// origin_coord is optional
	origin, _ := parseCoord(v.OriginCoord)

	firstSeen, err := parseTime(v.FirstSeen)
	if err != nil {
		return ActiveFlight{}, fmt.Errorf("error parsing first_seen %s: %v", v.FirstSeen, err)
	}
	lastUpdated, err := parseTime(v.LastUpdated)
	if err != nil {
		return ActiveFlight{}, fmt.Errorf("error parsing last_updated %s: %v", v.LastUpdated, err)
	}

	return ActiveFlight{
		ICAO24:       icao24,
		Callsign:     strings.TrimSpace(v.Callsign),
		Airline:      v.Airline,
		FlightNumber: v.FlightNumber,
		Origin:       v.Origin,
		OriginName:   v.OriginName,
		OriginCoord:  origin,
		LastCoord:    last,
		FirstSeen:    firstSeen,
		LastUpdated:  lastUpdated,
	}, nil
}

// Decode validates an active-planes payload (icao24 -> flight). A payload
// that is not a JSON object yields an empty snapshot and an error; invalid
// records are dropped.
func Decode(raw []byte) (map[string]ActiveFlight, error) {
	flights := make(map[string]ActiveFlight)

	records := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &records); err != nil {
		return flights, fmt.Errorf("active planes payload is not an object: %w", err)
	}

	for icao24, rec := range records {
		var v VFlight
		if err := json.Unmarshal(rec, &v); err != nil {
			log.WithError(err).WithField("icao24", icao24).Trace("skipping invalid flight")
			continue
		}
		f, err := makeFlight(icao24, v)
		if err != nil {
			log.WithError(err).WithField("icao24", icao24).Trace("skipping invalid flight")
			continue
		}
		flights[icao24] = f
	}
	return flights, nil
}
