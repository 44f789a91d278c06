package builder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vatsimnerd/routemap"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/ourairports"
	"github.com/vatsimnerd/routemap/store"
)

const testAirlines = `1355,"British Airways",\N,"BA","BAW","SPEEDBIRD","United Kingdom","Y"
4296,"Ryanair",\N,"FR","RYR","RYANAIR","Ireland","Y"
-1,"Unknown",\N,"-","N/A",\N,\N,"Y"
9999,"Broken"
`

type continentAirports []ourairports.Airport

func (c continentAirports) Airports(continents []string) []ourairports.Airport {
	if len(continents) == 0 {
		return c
	}
	res := make([]ourairports.Airport, 0)
	for _, a := range c {
		for _, cont := range continents {
			if a.Continent == cont {
				res = append(res, a)
			}
		}
	}
	return res
}

var testAirports = continentAirports{
	{Code: "AAA", Name: "A", Latitude: 10, Longitude: 20, Continent: "EU", Country: "Alpha", CountryCode: "AL"},
	{Code: "BBB", Name: "B", Latitude: 30, Longitude: 40, Continent: "NA", Country: "Bravo", CountryCode: "BR"},
	{Code: "CCC", Name: "C", Latitude: 50, Longitude: 60, Continent: "EU", Country: "Alpha", CountryCode: "AL"},
}

func TestParseAirlines(t *testing.T) {
	names := ParseAirlines([]byte(testAirlines))
	assert.Equal(t, "British Airways", names["BA"])
	assert.Equal(t, "British Airways", names["BAW"])
	assert.Equal(t, "Ryanair", names["RYR"])
	assert.Equal(t, "Unknown", names["-"])
	_, found := names[`\N`]
	assert.False(t, found)
}

func TestBuild(t *testing.T) {
	routes := []store.Route{
		{Airline: "BAW", FlightNumber: "12", Source: "AAA", Destination: "BBB"},
		{Airline: "XYZ", FlightNumber: "1", Source: "AAA", Destination: "CCC"},
		{Airline: "RYR", FlightNumber: "7", Source: "BBB", Destination: "AAA"},
		{Airline: "RYR", FlightNumber: "8", Source: "CCC", Destination: "ZZZ"},
	}

	airports := Build(routes, testAirports.Airports([]string{"EU"}), testAirports, ParseAirlines([]byte(testAirlines)))
	require.Len(t, airports, 1)

	a := airports[0]
	assert.Equal(t, "AAA", a.Code)
	assert.Equal(t, "Alpha", a.Country)
	require.Len(t, a.Routes, 2)

	r := a.Routes[0]
	assert.Equal(t, dataset.Coord{10, 20}, r.From)
	assert.Equal(t, dataset.Coord{30, 40}, r.To)
	assert.Equal(t, "A", r.FromName)
	assert.Equal(t, "B", r.ToName)
	assert.Equal(t, "British Airways", r.Airline)
	assert.Equal(t, "BAW", r.AirlineCode)
	assert.Equal(t, "12", r.FlightNumber)

	// unknown airline codes are shown as is
	assert.Equal(t, "XYZ", a.Routes[1].Airline)
}

func TestUpdate(t *testing.T) {
	dir := t.TempDir()
	airlinesFile := filepath.Join(dir, "airlines.dat")
	require.NoError(t, os.WriteFile(airlinesFile, []byte(testAirlines), 0o644))

	storage, err := store.Open(filepath.Join(dir, "routes.db"))
	require.NoError(t, err)
	defer storage.Close()
	now := time.Now().UTC()
	require.NoError(t, storage.UpsertRoute(store.Route{Airline: "BAW", FlightNumber: "12", Source: "AAA", Destination: "BBB", FirstSeen: now, LastSeen: now}))
	require.NoError(t, storage.UpsertRoute(store.Route{Airline: "RYR", FlightNumber: "7", Source: "BBB", Destination: "AAA", FirstSeen: now, LastSeen: now}))

	settings, err := routemap.LoadSettings(filepath.Join(dir, "config.json"))
	require.NoError(t, err)

	target := dataset.New(&dataset.Config{})
	output := filepath.Join(dir, "airports.json")
	b := New(&Config{AirlinesURL: airlinesFile, Timeout: time.Second, Output: output}, testAirports, storage, settings, target)

	res, err := b.Update()
	require.NoError(t, err)
	assert.Equal(t, Result{Airports: 1, Routes: 1}, res)

	ds := target.Dataset()
	require.Len(t, ds.Airports, 1)
	assert.Equal(t, []string{"British Airways"}, ds.Airlines)
	assert.Equal(t, "BAW", ds.AirlineCode("British Airways"))

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	decoded, err := dataset.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, ds.Airports, decoded.Airports)

	// both continents publish both airports
	require.NoError(t, settings.Set(routemap.Settings{AirportContinents: []string{"EU", "NA"}}))
	res, err = b.Update()
	require.NoError(t, err)
	assert.Equal(t, Result{Airports: 2, Routes: 2}, res)
}

func TestUpdateWithoutAirlines(t *testing.T) {
	dir := t.TempDir()
	storage, err := store.Open(filepath.Join(dir, "routes.db"))
	require.NoError(t, err)
	defer storage.Close()
	now := time.Now().UTC()
	require.NoError(t, storage.UpsertRoute(store.Route{Airline: "BAW", FlightNumber: "12", Source: "AAA", Destination: "BBB", FirstSeen: now, LastSeen: now}))

	settings, err := routemap.LoadSettings(filepath.Join(dir, "config.json"))
	require.NoError(t, err)

	b := New(&Config{AirlinesURL: filepath.Join(dir, "missing.dat")}, testAirports, storage, settings, nil)
	res, err := b.Update()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Routes)
}
