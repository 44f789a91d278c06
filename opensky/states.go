package opensky

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/vatsimnerd/routemap/dataset"
)

// State is a single aircraft state vector from /states/all.
type State struct {
	ICAO24        string
	Callsign      string
	OriginCountry string
	Position      dataset.Coord
	HasPosition   bool
	OnGround      bool
}

type statesResponse struct {
	Time   int64            `json:"time"`
	States *[][]interface{} `json:"states"`
}

var (
	ErrNoStates = fmt.Errorf("payload has no states list")

	callsignExpr = regexp.MustCompile(`^([A-Za-z]{2,3})`)
)

// ParseCallsign splits a callsign into its airline prefix (2-3 letters,
// upper-cased) and flight number. A callsign without a letter prefix is
// returned whole as the number.
func ParseCallsign(callsign string) (string, string) {
	cs := strings.TrimSpace(callsign)
	if cs == "" {
		return "", ""
	}
	loc := callsignExpr.FindStringIndex(cs)
	if loc == nil {
		return "", cs
	}
	return strings.ToUpper(cs[:loc[1]]), strings.TrimSpace(cs[loc[1]:])
}

// ParseStates decodes a /states/all payload. States without an icao24 are
// skipped. A payload without a states list, such as an error body, is an
// error rather than an empty snapshot.
func ParseStates(raw []byte) ([]State, error) {
	var resp statesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parsing states: %w", err)
	}
	if resp.States == nil {
		return nil, ErrNoStates
	}

	states := make([]State, 0, len(*resp.States))
	for _, s := range *resp.States {
		state, ok := parseState(s)
		if !ok {
			continue
		}
		states = append(states, state)
	}
	return states, nil
}

func parseState(s []interface{}) (State, bool) {
	if len(s) < 7 {
		return State{}, false
	}
	icao24, _ := s[0].(string)
	if icao24 == "" {
		return State{}, false
	}

	state := State{ICAO24: strings.TrimSpace(icao24)}
	if cs, ok := s[1].(string); ok {
		state.Callsign = strings.TrimSpace(cs)
	}
	if country, ok := s[2].(string); ok {
		state.OriginCountry = country
	}

	lon, lonOK := s[5].(float64)
	lat, latOK := s[6].(float64)
	if lonOK && latOK {
		c := dataset.Coord{lat, lon}
		if c.Valid() {
			state.Position = c
			state.HasPosition = true
		}
	}

	if len(s) > 8 {
		state.OnGround, _ = s[8].(bool)
	}
	return state, true
}
