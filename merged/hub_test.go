package merged

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/flights"
	"github.com/vatsimnerd/routemap/mapview"
	"github.com/vatsimnerd/util/pubsub"
)

func testHub() *Hub {
	datasets := dataset.New(&dataset.Config{})
	datasets.Replace(dataset.Build([]dataset.Airport{
		{
			Code: "AAA", Name: "A", Lat: 10, Lon: 20, CountryCode: "AL", Country: "Alpha",
			Routes: []dataset.Route{
				{From: dataset.Coord{10, 20}, To: dataset.Coord{30, 40}, FromName: "A", ToName: "B", Airline: "Alpha Air", AirlineCode: "AL"},
			},
		},
	}))

	fp := flights.New(&flights.Config{})
	fp.Apply([]byte(`{"abc": {"callsign": "AL1", "airline": "AL", "last_coord": [10, 20]}}`))

	return New(datasets, fp, nil)
}

func TestSessions(t *testing.T) {
	h := testHub()

	s := h.Create()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, h.Count())

	found, err := h.Session(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, found)

	err = s.Do(func(v *mapview.View) error {
		assert.Len(t, v.Markers(), 1)
		return v.ToggleAirport("AAA")
	})
	require.NoError(t, err)

	require.NoError(t, h.Delete(s.ID))
	_, err = h.Session(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, h.Delete(s.ID), ErrSessionNotFound)
}

func TestShowPlanesFollowsFlights(t *testing.T) {
	h := testHub()
	s := h.Create()
	other := h.Create()

	require.NoError(t, h.ShowPlanes(s, true))

	planes := func(s *Session) []mapview.Plane {
		var res []mapview.Plane
		s.Do(func(v *mapview.View) error {
			res = v.Planes()
			return nil
		})
		return res
	}

	require.Len(t, planes(s), 1)
	assert.Empty(t, planes(other))

	moved := flights.ActiveFlight{ICAO24: "abc", Callsign: "AL1", Airline: "AL", LastCoord: dataset.Coord{11, 21}}
	h.handleFlight(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: flights.ObjectTypeFlight, Obj: moved})
	h.handleFlight(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: flights.ObjectTypeFlight, Obj: flights.ActiveFlight{ICAO24: "def", LastCoord: dataset.Coord{1, 1}}})

	ps := planes(s)
	require.Len(t, ps, 2)
	assert.Equal(t, dataset.Coord{11, 21}, ps[0].Position)
	assert.Empty(t, planes(other))

	h.handleFlight(pubsub.Update{UType: pubsub.UpdateTypeDelete, OType: flights.ObjectTypeFlight, Obj: moved})
	ps = planes(s)
	require.Len(t, ps, 1)
	assert.Equal(t, "def", ps[0].ICAO24)

	// unexpected payloads are ignored
	h.handleFlight(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: flights.ObjectTypeFlight, Obj: "junk"})
	assert.Len(t, planes(s), 1)

	require.NoError(t, h.ShowPlanes(s, false))
	assert.Empty(t, planes(s))
}

func TestInfoPushedToSessions(t *testing.T) {
	h := testHub()
	s := h.Create()

	info := h.RefreshInfo()
	assert.Equal(t, mapview.Info{ActiveAirports: 1, ActivePlanes: 1}, info)
	assert.Equal(t, info, h.Info())

	var stats string
	s.Do(func(v *mapview.View) error {
		stats = v.Stats()
		return nil
	})
	assert.Equal(t, "Airports: 1/1 | Planes: 0/1 | Routes: 0 (last hr: 0)", stats)
}

func TestExpireSessions(t *testing.T) {
	h := testHub()
	h.sessions = newHub(h.datasets, h.flights, nil, 200*time.Millisecond).sessions

	stale := h.Create()
	active := h.Create()

	// lookups keep a session alive
	for i := 0; i < 6; i++ {
		time.Sleep(50 * time.Millisecond)
		_, err := h.Session(active.ID)
		require.NoError(t, err)
	}

	_, err := h.Session(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = h.Session(active.ID)
	assert.NoError(t, err)
}

func TestChangedSignal(t *testing.T) {
	h := testHub()
	watching := h.Create()
	idle := h.Create()
	require.NoError(t, h.ShowPlanes(watching, true))

	h.handleFlight(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: flights.ObjectTypeFlight, Obj: flights.ActiveFlight{ICAO24: "zzz", LastCoord: dataset.Coord{5, 5}}})

	select {
	case <-watching.Changed():
	default:
		t.Error("session showing planes should be signalled")
	}
	select {
	case <-idle.Changed():
		t.Error("session without planes should not be signalled")
	default:
	}
}

func TestFilteredFlightDoesNotSignal(t *testing.T) {
	h := testHub()
	s := h.Create()
	require.NoError(t, h.ShowPlanes(s, true))
	require.NoError(t, s.Do(func(v *mapview.View) error {
		v.SetAirline("Alpha Air")
		return nil
	}))

	h.handleFlight(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: flights.ObjectTypeFlight, Obj: flights.ActiveFlight{ICAO24: "other", Airline: "ZZ", LastCoord: dataset.Coord{5, 5}}})
	select {
	case <-s.Changed():
		t.Error("plane outside the airline filter should not signal")
	default:
	}

	h.handleFlight(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: flights.ObjectTypeFlight, Obj: flights.ActiveFlight{ICAO24: "abc", Airline: "AL", LastCoord: dataset.Coord{6, 6}}})
	select {
	case <-s.Changed():
	default:
		t.Error("plane within the airline filter should signal")
	}
}
