package mapview

import (
	"github.com/vatsimnerd/routemap/dataset"
)

const (
	MinRadius = 8.0
	MaxRadius = 35.0
)

type (
	Marker struct {
		Airport dataset.Airport
		Count   int
		Radius  float64
		Visible bool

		// ids of the route lines drawn from this airport
		lines []int
	}

	Line struct {
		ID       int
		Airport  string
		Route    dataset.Route
		Color    string
		Selected bool
	}

	SelectedRoute struct {
		Line  int
		Route dataset.Route
	}

	Plane struct {
		ICAO24   string
		Position dataset.Coord
		Tooltip  string
	}

	Filter struct {
		Airline string `json:"airline"`
		Country string `json:"country"`
	}

	// Info holds the counters published by the info endpoint.
	Info struct {
		ActiveAirports    int `json:"active_airports"`
		ActivePlanes      int `json:"active_planes"`
		Routes            int `json:"routes"`
		RecoveredLastHour int `json:"recovered_last_hour"`
		RemovedLastHour   int `json:"removed_last_hour"`
	}
)

// CurrentColor is the colour the line is drawn with right now.
func (l Line) CurrentColor() string {
	if l.Selected {
		return SelectedColor
	}
	return l.Color
}

func (m Marker) Drawn() bool {
	return len(m.lines) > 0
}
