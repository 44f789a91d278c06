package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/util/set"
)

// Dataset is the validated airport list together with the lookups derived
// from it. It is never modified after construction.
type Dataset struct {
	Airports  []Airport
	Airlines  []string
	Countries []Country

	// airline display name -> airline code
	AirlineCodes map[string]string
}

// Build keeps only airports that have routes and derives the filter options.
func Build(airports []Airport) *Dataset {
	ds := &Dataset{
		Airports:     make([]Airport, 0, len(airports)),
		Airlines:     make([]string, 0),
		Countries:    make([]Country, 0),
		AirlineCodes: make(map[string]string),
	}

	airlines := set.New[string]()
	countries := make(map[string]string)

	for _, a := range airports {
		if len(a.Routes) == 0 {
			continue
		}
		ds.Airports = append(ds.Airports, a)

		for _, r := range a.Routes {
			if !airlines.Has(r.Airline) {
				airlines.Add(r.Airline)
				ds.Airlines = append(ds.Airlines, r.Airline)
			}
			if r.Airline != "" && r.AirlineCode != "" {
				ds.AirlineCodes[r.Airline] = r.AirlineCode
			}
		}
		countries[a.CountryCode] = a.Country
	}

	sort.Strings(ds.Airlines)
	for code, name := range countries {
		ds.Countries = append(ds.Countries, Country{Code: code, Name: name})
	}
	sort.Slice(ds.Countries, func(i, j int) bool {
		if ds.Countries[i].Name != ds.Countries[j].Name {
			return ds.Countries[i].Name < ds.Countries[j].Name
		}
		return ds.Countries[i].Code < ds.Countries[j].Code
	})

	return ds
}

// Empty returns a dataset without airports.
func Empty() *Dataset {
	return Build(nil)
}

// AirlineCode resolves a display name to its code, falling back to the name.
func (ds *Dataset) AirlineCode(airline string) string {
	if code, found := ds.AirlineCodes[airline]; found {
		return code
	}
	return airline
}

func (ds *Dataset) Find(code string) (Airport, bool) {
	for _, a := range ds.Airports {
		if a.Code == code {
			return a, true
		}
	}
	return Airport{}, false
}

func (ds *Dataset) RouteCount() int {
	n := 0
	for _, a := range ds.Airports {
		n += len(a.Routes)
	}
	return n
}

// Decode validates an airports.json payload. A payload that is not a JSON
// array yields an empty dataset and an error; individual invalid records are
// dropped.
func Decode(raw []byte) (*Dataset, error) {
	records := make([]json.RawMessage, 0)
	if err := json.Unmarshal(raw, &records); err != nil {
		return Empty(), fmt.Errorf("airports payload is not an array: %w", err)
	}

	airports := make([]Airport, 0, len(records))
	for i, rec := range records {
		a, err := parseAirport(rec)
		if err != nil {
			log.WithError(err).WithField("index", i).Debug("skipping invalid airport")
			continue
		}
		airports = append(airports, a)
	}
	return Build(airports), nil
}

// Wire records use pointers so that missing fields are told apart from zero
// values.
type (
	wireCoord []*float64

	wireRoute struct {
		From         wireCoord `json:"from"`
		To           wireCoord `json:"to"`
		FromName     string    `json:"from_name"`
		ToName       string    `json:"to_name"`
		Airline      string    `json:"airline"`
		AirlineCode  string    `json:"airline_code"`
		FlightNumber string    `json:"flight_number"`
	}

	wireAirport struct {
		Code        string            `json:"code"`
		Name        string            `json:"name"`
		Lat         *float64          `json:"lat"`
		Lon         *float64          `json:"lon"`
		Country     string            `json:"country"`
		CountryCode string            `json:"country_code"`
		Routes      []json.RawMessage `json:"routes"`
	}
)

func (w wireCoord) coord() (Coord, bool) {
	if len(w) != 2 || w[0] == nil || w[1] == nil {
		return Coord{}, false
	}
	c := Coord{*w[0], *w[1]}
	return c, c.Valid()
}

func parseAirport(rec json.RawMessage) (Airport, error) {
	var w wireAirport
	if err := json.Unmarshal(rec, &w); err != nil {
		return Airport{}, err
	}

	code := strings.TrimSpace(w.Code)
	if code == "" {
		return Airport{}, fmt.Errorf("airport code is missing")
	}
	if w.Lat == nil || w.Lon == nil {
		return Airport{}, fmt.Errorf("coordinates of %s are missing", code)
	}
	if !validLatLon(*w.Lat, *w.Lon) {
		return Airport{}, fmt.Errorf("invalid coordinates %v,%v for %s", *w.Lat, *w.Lon, code)
	}

	a := Airport{
		Code:        code,
		Name:        w.Name,
		Lat:         *w.Lat,
		Lon:         *w.Lon,
		Country:     w.Country,
		CountryCode: w.CountryCode,
		Routes:      make([]Route, 0, len(w.Routes)),
	}
	for i, raw := range w.Routes {
		r, err := parseRoute(raw)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"airport": code, "route": i}).Trace("skipping invalid route")
			continue
		}
		a.Routes = append(a.Routes, r)
	}
	return a, nil
}

func parseRoute(raw json.RawMessage) (Route, error) {
	var w wireRoute
	if err := json.Unmarshal(raw, &w); err != nil {
		return Route{}, err
	}
	from, ok := w.From.coord()
	if !ok {
		return Route{}, fmt.Errorf("invalid route origin")
	}
	to, ok := w.To.coord()
	if !ok {
		return Route{}, fmt.Errorf("invalid route destination")
	}
	return Route{
		From:         from,
		To:           to,
		FromName:     w.FromName,
		ToName:       w.ToName,
		Airline:      w.Airline,
		AirlineCode:  w.AirlineCode,
		FlightNumber: w.FlightNumber,
	}, nil
}
