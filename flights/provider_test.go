package flights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vatsimnerd/routemap/dataset"
)

func TestDecode(t *testing.T) {
	raw := `{
		"abc": {"callsign": "AL123 ", "airline": "AL", "flight_number": "123", "last_coord": [10, 20],
		        "origin": "AAA", "first_seen": "2024-05-01T10:00:00.123456Z", "last_updated": "2024-05-01T11:35:00.123456Z"},
		"def": {"callsign": "RYR456", "last_coord": [30, 40], "first_seen": "2024-05-01T10:00:00"},
		"nocoord": {"callsign": "X"},
		"nullcoord": {"callsign": "Y", "last_coord": [null, 3]},
		"badtime": {"callsign": "Z", "last_coord": [1, 1], "first_seen": "yesterday"},
		"wrongtype": 42
	}`

	flights, err := Decode([]byte(raw))
	require.NoError(t, err)
	require.Len(t, flights, 2)

	abc := flights["abc"]
	assert.Equal(t, "abc", abc.ICAO24)
	assert.Equal(t, "AL123", abc.Callsign)
	assert.Equal(t, dataset.Coord{10, 20}, abc.LastCoord)
	assert.Equal(t, 95*time.Minute, abc.Duration())

	def := flights["def"]
	assert.Equal(t, 2024, def.FirstSeen.Year())
	assert.True(t, def.LastUpdated.IsZero())
}

func TestDecodeNonObject(t *testing.T) {
	flights, err := Decode([]byte(`[1, 2, 3]`))
	assert.Error(t, err)
	assert.Empty(t, flights)
}

func TestDescribe(t *testing.T) {
	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	testcases := []struct {
		name   string
		flight ActiveFlight
		exp    string
	}{
		{
			name: "full",
			flight: ActiveFlight{
				Callsign: "BAW12", Airline: "BAW", OriginName: "Heathrow", Origin: "LHR",
				FirstSeen: first, LastUpdated: first.Add(125 * time.Minute),
			},
			exp: "BAW12, BAW, 2h 5m, Heathrow",
		},
		{
			name: "no callsign",
			flight: ActiveFlight{
				Airline: "RYR", FlightNumber: "456", Origin: "DUB",
				FirstSeen: first, LastUpdated: first.Add(42 * time.Minute),
			},
			exp: "RYR456, RYR, 42m, DUB",
		},
		{
			name:   "last before first",
			flight: ActiveFlight{Callsign: "X1", FirstSeen: first, LastUpdated: first.Add(-time.Minute)},
			exp:    "X1",
		},
		{
			name:   "same instant",
			flight: ActiveFlight{Callsign: "X2", FirstSeen: first, LastUpdated: first},
			exp:    "X2, 0m",
		},
	}

	for _, tc := range testcases {
		assert.Equal(t, tc.exp, tc.flight.Describe(), tc.name)
	}
}

func TestApplyDiffsSnapshots(t *testing.T) {
	p := New(&Config{})

	p.Apply([]byte(`{"abc": {"callsign": "AL1", "last_coord": [10, 20]}, "def": {"callsign": "AL2", "last_coord": [30, 40]}}`))
	require.Equal(t, 2, p.Count())

	p.Apply([]byte(`{"abc": {"callsign": "AL1", "last_coord": [11, 21]}}`))
	snapshot := p.Flights()
	require.Len(t, snapshot, 1)
	assert.Equal(t, dataset.Coord{11, 21}, snapshot["abc"].LastCoord)
	_, found := snapshot["def"]
	assert.False(t, found)

	p.Apply([]byte(`garbage`))
	assert.Equal(t, 0, p.Count())
}
