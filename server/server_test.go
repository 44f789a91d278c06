package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vatsimnerd/routemap"
	"github.com/vatsimnerd/routemap/builder"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/flights"
	"github.com/vatsimnerd/routemap/merged"
	"github.com/vatsimnerd/routemap/ourairports"
	"github.com/vatsimnerd/routemap/store"
	"github.com/vatsimnerd/routemap/tracker"
)

const testAirportsCSV = `"id","ident","type","name","latitude_deg","longitude_deg","elevation_ft","continent","iso_country","iso_region","municipality","scheduled_service","icao_code","iata_code","gps_code"
1,"XAAA","large_airport","A",10,20,0,"EU","AL","AL-1","","yes","XAAA","AAA","XAAA"
2,"XBBB","large_airport","B",30,40,0,"EU","BR","BR-1","","yes","XBBB","BBB","XBBB"
`

const testAirlines = `1,"Alpha Lines",\N,"AL","ALP","ALPHA","Alpha","Y"
`

type testEnv struct {
	t       *testing.T
	dir     string
	srv     *httptest.Server
	hub     *merged.Hub
	storage *store.Storage

	statesLock sync.Mutex
	states     []string
}

func newTestEnv(t *testing.T) *testEnv {
	env := &testEnv{t: t, dir: t.TempDir()}
	dataDir := filepath.Join(env.dir, "data")
	publicDir := filepath.Join(env.dir, "public")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.MkdirAll(publicDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(publicDir, "index.html"), []byte("<html>map</html>"), 0o644))

	opensky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.statesLock.Lock()
		defer env.statesLock.Unlock()
		if len(env.states) == 0 {
			w.Write([]byte(`{"time": 1, "states": []}`))
			return
		}
		w.Write([]byte(env.states[0]))
		env.states = env.states[1:]
	}))
	t.Cleanup(opensky.Close)

	storage, err := store.Open(filepath.Join(env.dir, "routes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	env.storage = storage

	settings, err := routemap.LoadSettings(filepath.Join(dataDir, "config.json"))
	require.NoError(t, err)

	airports := ourairports.New(&ourairports.Config{})
	require.NoError(t, airports.ParseAirports([]byte(testAirportsCSV)))

	airlinesFile := filepath.Join(env.dir, "airlines.dat")
	require.NoError(t, os.WriteFile(airlinesFile, []byte(testAirlines), 0o644))

	datasets := dataset.New(&dataset.Config{})
	fp := flights.New(&flights.Config{})
	tr := tracker.New(&tracker.Config{URL: opensky.URL}, storage, airports, settings)
	b := builder.New(&builder.Config{AirlinesURL: airlinesFile, Output: filepath.Join(dataDir, "airports.json")}, airports, storage, settings, datasets)
	env.hub = merged.New(datasets, fp, tr)

	s := New(&Config{DataDir: dataDir, PublicDir: publicDir}, Deps{
		Hub:      env.hub,
		Datasets: datasets,
		Tracker:  tr,
		Builder:  b,
		Storage:  storage,
		Settings: settings,
	})
	env.srv = httptest.NewServer(s.Handler())
	t.Cleanup(env.srv.Close)
	return env
}

func (env *testEnv) queueStates(states ...string) {
	env.statesLock.Lock()
	defer env.statesLock.Unlock()
	env.states = append(env.states, states...)
}

func (env *testEnv) do(method, path string, body interface{}, out interface{}) int {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(env.t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, env.srv.URL+path, rd)
	require.NoError(env.t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(env.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(env.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestUpdateRoutesAndAirports(t *testing.T) {
	env := newTestEnv(t)
	env.queueStates(
		`{"states": [["abc", "AL123 ", "", 0, 0, 20.0, 10.0], ["def", "RYR456 ", "", 0, 0, 40.0, 30.0]]}`,
		`{"states": [["abc", "AL123 ", "", 0, 0, 40.0, 30.0], ["def", "RYR456 ", "", 0, 0, 40.0, 30.0]]}`,
		`{"states": [["def", "RYR456 ", "", 0, 0, 40.0, 30.0]]}`,
	)

	for i := 0; i < 3; i++ {
		var stats store.Stats
		require.Equal(t, http.StatusOK, env.do("POST", "/update-routes", nil, &stats))
	}

	var routes []store.Route
	require.Equal(t, http.StatusOK, env.do("GET", "/routes-db", nil, &routes))
	require.Len(t, routes, 1)
	assert.Equal(t, "AL", routes[0].Airline)
	assert.Equal(t, "123", routes[0].FlightNumber)
	assert.Equal(t, "AAA", routes[0].Source)
	assert.Equal(t, "BBB", routes[0].Destination)
	assert.Equal(t, store.StatusActive, routes[0].Status)

	var stats store.Stats
	require.Equal(t, http.StatusOK, env.do("GET", "/routes-stats", nil, &stats))
	assert.Equal(t, 1, stats.Routes)
	assert.Equal(t, 1, stats.ActivePlanes)

	var info map[string]int
	require.Equal(t, http.StatusOK, env.do("GET", "/info", nil, &info))
	assert.Equal(t, 1, info["routes"])
	assert.Equal(t, 1, info["active_planes"])
	assert.Equal(t, 1, info["recovered_last_hour"])

	var planes map[string]flights.ActiveFlight
	require.Equal(t, http.StatusOK, env.do("GET", "/active-planes", nil, &planes))
	require.Contains(t, planes, "def")
	assert.Equal(t, "BBB", planes["def"].Origin)

	var res builder.Result
	require.Equal(t, http.StatusOK, env.do("POST", "/update-airports", nil, &res))
	assert.Equal(t, builder.Result{Airports: 1, Routes: 1}, res)

	var airports []dataset.Airport
	require.Equal(t, http.StatusOK, env.do("GET", "/airports.json", nil, &airports))
	require.Len(t, airports, 1)
	require.Len(t, airports[0].Routes, 1)
	assert.Equal(t, "Alpha Lines", airports[0].Routes[0].Airline)

	_, err := os.Stat(filepath.Join(env.dir, "data", "airports.json"))
	assert.NoError(t, err)

	require.Equal(t, http.StatusOK, env.do("GET", "/info", nil, &info))
	assert.Equal(t, 1, info["active_airports"])
}

func TestRoutesStatsEmpty(t *testing.T) {
	env := newTestEnv(t)
	var stats map[string]interface{}
	require.Equal(t, http.StatusOK, env.do("GET", "/routes-stats", nil, &stats))
	assert.Equal(t, float64(0), stats["routes"])
	assert.Nil(t, stats["last_run"])
}

func TestAdminFileOps(t *testing.T) {
	env := newTestEnv(t)
	dataDir := filepath.Join(env.dir, "data")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "test.txt"), []byte("hello"), 0o644))

	var list struct {
		Files []FileInfo `json:"files"`
	}
	require.Equal(t, http.StatusOK, env.do("GET", "/admin/files", nil, &list))
	require.Len(t, list.Files, 1)
	assert.Equal(t, "test.txt", list.Files[0].Name)

	resp, err := http.Get(env.srv.URL + "/admin/download/test.txt")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(body))

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", "new.txt")
	require.NoError(t, err)
	fw.Write([]byte("data"))
	mw.Close()
	resp, err = http.Post(env.srv.URL+"/admin/upload/new.txt", mw.FormDataContentType(), buf)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	saved, err := os.ReadFile(filepath.Join(dataDir, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(saved))

	require.Equal(t, http.StatusOK, env.do("GET", "/admin/files", nil, &list))
	var info *FileInfo
	for i := range list.Files {
		if list.Files[i].Name == "new.txt" {
			info = &list.Files[i]
		}
	}
	require.NotNil(t, info)
	assert.Equal(t, int64(4), info.Size)
	require.NotNil(t, info.Records)
	assert.Equal(t, 1, *info.Records)

	assert.Equal(t, http.StatusOK, env.do("DELETE", "/admin/delete/test.txt", nil, nil))
	_, err = os.Stat(filepath.Join(dataDir, "test.txt"))
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, http.StatusNotFound, env.do("DELETE", "/admin/delete/test.txt", nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do("GET", "/admin/download/missing.txt", nil, nil))
}

func TestDataFileNames(t *testing.T) {
	s := &Server{cfg: &Config{DataDir: "/data"}}

	path, err := s.dataFile("airports.json")
	require.NoError(t, err)
	assert.Equal(t, "/data/airports.json", path)

	for _, name := range []string{"", ".", "..", "../etc/passwd", `a\b`, "dir/file"} {
		_, err := s.dataFile(name)
		assert.Error(t, err, name)
	}
}

func TestAdminConfig(t *testing.T) {
	env := newTestEnv(t)

	var body struct {
		Config     routemap.Settings `json:"config"`
		Continents []string          `json:"continents"`
	}
	require.Equal(t, http.StatusOK, env.do("GET", "/admin/config", nil, &body))
	assert.Equal(t, []string{"EU"}, body.Config.AirportContinents)
	assert.NotEmpty(t, body.Continents)

	payload := map[string][]string{"airport_continents": {"NA", "EU"}, "flight_continents": {"NA"}}
	require.Equal(t, http.StatusOK, env.do("POST", "/admin/config", payload, nil))

	raw, err := os.ReadFile(filepath.Join(env.dir, "data", "config.json"))
	require.NoError(t, err)
	var saved routemap.Settings
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.ElementsMatch(t, []string{"EU", "NA"}, saved.AirportContinents)
	assert.Equal(t, []string{"NA"}, saved.FlightContinents)

	bad := map[string][]string{"airport_continents": {"MARS"}}
	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/admin/config", bad, nil))
}

func TestStaticFiles(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "map")
}
