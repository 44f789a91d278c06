package dataset

import (
	"math"

	"github.com/paulmach/orb"
)

type (
	// Coord is a [lat, lon] pair as it appears on the wire.
	Coord [2]float64

	Route struct {
		From         Coord  `json:"from"`
		To           Coord  `json:"to"`
		FromName     string `json:"from_name"`
		ToName       string `json:"to_name"`
		Airline      string `json:"airline"`
		AirlineCode  string `json:"airline_code,omitempty"`
		FlightNumber string `json:"flight_number,omitempty"`
	}

	Airport struct {
		Code        string  `json:"code"`
		Name        string  `json:"name"`
		Lat         float64 `json:"lat"`
		Lon         float64 `json:"lon"`
		Country     string  `json:"country"`
		CountryCode string  `json:"country_code"`
		Routes      []Route `json:"routes"`
	}

	Country struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
)

func (c Coord) Lat() float64 { return c[0] }
func (c Coord) Lon() float64 { return c[1] }

// Point converts to orb's [lon, lat] order.
func (c Coord) Point() orb.Point {
	return orb.Point{c[1], c[0]}
}

func (c Coord) Valid() bool {
	return validLatLon(c[0], c[1])
}

func CoordOf(p orb.Point) Coord {
	return Coord{p.Lat(), p.Lon()}
}

func (a Airport) Position() Coord {
	return Coord{a.Lat, a.Lon}
}

func validLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
