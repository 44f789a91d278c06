package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/routemap"
	"github.com/vatsimnerd/routemap/flights"
	"github.com/vatsimnerd/routemap/geoindex"
	"github.com/vatsimnerd/routemap/opensky"
	"github.com/vatsimnerd/routemap/ourairports"
	"github.com/vatsimnerd/routemap/store"
	"github.com/vatsimnerd/util/pubsub"
	"github.com/vatsimnerd/util/set"
)

// AirportSource provides the reference airports used to resolve positions.
// The tracker runs it and rebuilds its index whenever the source publishes a
// changed table.
type AirportSource interface {
	Start() error
	Stop()
	Subscribe(chSize int) pubsub.Subscription
	Airports(continents []string) []ourairports.Airport
}

// Totals are the counters shown on the map status line.
type Totals struct {
	Routes            int `json:"routes"`
	ActivePlanes      int `json:"active_planes"`
	RecoveredLastHour int `json:"recovered_last_hour"`
	RemovedLastHour   int `json:"removed_last_hour"`
}

// Tracker infers routes from OpenSky state vectors: an aircraft's origin is
// the airport nearest to where it first appears, its destination the airport
// nearest to where it was last seen before vanishing from the feed.
type Tracker struct {
	*pubsub.Provider

	cfg      *Config
	client   *opensky.Client
	storage  *store.Storage
	airports AirportSource
	settings *routemap.SettingsStore

	stop    chan bool
	stopped bool

	index      *geoindex.Index
	indexReady bool
	indexLock  sync.Mutex

	runLock sync.Mutex
}

var (
	log = logrus.WithField("module", "tracker")
)

const (
	ObjectTypeRun pubsub.ObjectType = 600 + iota
)

func New(cfg *Config, storage *store.Storage, airports AirportSource, settings *routemap.SettingsStore) *Tracker {
	opts := []opensky.ClientOption{}
	if cfg.URL != "" {
		opts = append(opts, opensky.WithBaseURL(cfg.URL))
	}
	if cfg.Username != "" {
		opts = append(opts, opensky.WithCredentials(cfg.Username, cfg.Password))
	}
	return &Tracker{
		Provider: pubsub.NewProvider(),
		cfg:      cfg,
		client:   opensky.NewClient(opts...),
		storage:  storage,
		airports: airports,
		settings: settings,
		stop:     make(chan bool),
		stopped:  false,
	}
}

// Start runs the airport source and begins polling OpenSky when a poll
// period is configured. Without one, runs only happen through UpdateNow.
func (t *Tracker) Start() error {
	if t.stopped {
		return fmt.Errorf("can't start once stopped tracker")
	}
	go t.loop()
	return nil
}

func (t *Tracker) Stop() {
	t.stop <- true
}

func (t *Tracker) loop() {
	defer t.Dispose()

	asub := t.airports.Subscribe(65536)
	t.airports.Start()
	defer func() {
		// the source may be blocked notifying us
		if updates := asub.Updates(); updates != nil {
			go func() {
				for range updates {
				}
			}()
		}
		t.airports.Stop()
	}()

	var rawChan <-chan []byte
	if t.cfg.Poll.Period > 0 {
		ch, stopSource, err := routemap.OpenFetcher("opensky states", t.fetchStates, t.cfg.Poll, t.cfg.Boot)
		if err != nil {
			log.WithError(err).Error("error fetching opensky states, routes are updated on demand only")
		} else {
			defer stopSource()
			rawChan = ch
		}
	} else {
		log.Info("no poll period configured, routes are updated on demand only")
	}

	changed := false
	for {
		select {
		case upd, ok := <-asub.Updates():
			if !ok {
				asub = pubsub.Subscription{}
				continue
			}
			switch upd.UType {
			case pubsub.UpdateTypeSet, pubsub.UpdateTypeDelete:
				changed = true
			case pubsub.UpdateTypeFin:
				if changed || !t.hasIndex() {
					t.rebuildIndex()
				}
				changed = false
			}
		case raw := <-rawChan:
			if !t.hasIndex() {
				log.Debug("airports are not loaded yet, skipping opensky states")
				continue
			}
			states, err := opensky.ParseStates(raw)
			if err != nil {
				log.WithError(err).Error("error parsing opensky states")
				continue
			}
			if _, err := t.Process(states, time.Now().UTC()); err != nil {
				log.WithError(err).Error("error processing opensky states")
			}
		case <-t.stop:
			t.stopped = true
			return
		}
	}
}

func (t *Tracker) fetchStates() ([]byte, error) {
	ctx := context.Background()
	if t.cfg.Poll.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Poll.Timeout)
		defer cancel()
	}
	return t.client.FetchRaw(ctx)
}

// UpdateNow fetches the current states and processes them.
func (t *Tracker) UpdateNow(ctx context.Context) (store.Stats, error) {
	states, err := t.client.FetchStates(ctx)
	if err != nil {
		return store.Stats{}, fmt.Errorf("error fetching opensky states: %w", err)
	}
	run, err := t.Process(states, time.Now().UTC())
	if err != nil {
		return store.Stats{}, err
	}
	ts := run.Time
	return store.Stats{
		Routes:         run.Routes,
		ActivePlanes:   run.ActivePlanes,
		RemovedLastRun: run.Removed,
		LastRun:        &ts,
	}, nil
}

func (t *Tracker) hasIndex() bool {
	t.indexLock.Lock()
	defer t.indexLock.Unlock()
	return t.indexReady
}

func (t *Tracker) rebuildIndex() {
	idx := geoindex.New(t.airports.Airports(nil))

	t.indexLock.Lock()
	t.index = idx
	t.indexReady = true
	t.indexLock.Unlock()

	log.WithField("airports", idx.Len()).Info("airport index rebuilt")
}

// currentIndex returns the index built from the latest published airport
// table, building one from the current table on first use.
func (t *Tracker) currentIndex() *geoindex.Index {
	t.indexLock.Lock()
	defer t.indexLock.Unlock()

	if t.index == nil {
		t.index = geoindex.New(t.airports.Airports(nil))
	}
	return t.index
}

// Process applies one snapshot of state vectors taken at now and records
// the run.
func (t *Tracker) Process(states []opensky.State, now time.Time) (store.Run, error) {
	t.runLock.Lock()
	defer t.runLock.Unlock()

	planes, err := t.storage.Planes()
	if err != nil {
		return store.Run{}, fmt.Errorf("error loading planes: %w", err)
	}

	idx := t.currentIndex()
	continents := set.FromList(t.settings.Get().FlightContinents)
	seen := set.New[string]()

	for _, s := range states {
		if !s.HasPosition {
			// keep a known aircraft alive without moving it
			if _, found := planes[s.ICAO24]; found {
				seen.Add(s.ICAO24)
			}
			continue
		}
		prefix, number := opensky.ParseCallsign(s.Callsign)

		if p, found := planes[s.ICAO24]; found {
			p.LastCoord = s.Position
			p.LastUpdated = now
			p.Callsign = s.Callsign
			p.Airline = prefix
			p.FlightNumber = number
			planes[s.ICAO24] = p
			seen.Add(s.ICAO24)
			continue
		}

		origin, found := idx.Nearest(s.Position)
		if continents.Size() > 0 && (!found || !continents.Has(origin.Continent)) {
			continue
		}

		p := flights.ActiveFlight{
			ICAO24:       s.ICAO24,
			Callsign:     s.Callsign,
			Airline:      prefix,
			FlightNumber: number,
			OriginCoord:  s.Position,
			LastCoord:    s.Position,
			FirstSeen:    now,
			LastUpdated:  now,
		}
		if found {
			p.Origin = origin.Code
			p.OriginName = origin.Name
		}
		planes[s.ICAO24] = p
		seen.Add(s.ICAO24)
	}

	recovered := 0
	for icao24, p := range planes {
		if seen.Has(icao24) {
			continue
		}
		delete(planes, icao24)

		dest, found := idx.Nearest(p.LastCoord)
		plog := log.WithFields(logrus.Fields{"icao24": icao24, "callsign": p.Callsign, "origin": p.Origin})
		if p.Origin == "" || !found || dest.Code == p.Origin {
			plog.Trace("plane landed without a route")
			continue
		}

		err := t.storage.UpsertRoute(store.Route{
			Airline:      p.Airline,
			FlightNumber: p.FlightNumber,
			ICAO24:       icao24,
			Source:       p.Origin,
			Destination:  dest.Code,
			FirstSeen:    now,
			LastSeen:     now,
		})
		if err != nil {
			return store.Run{}, fmt.Errorf("error saving route: %w", err)
		}
		recovered++
		plog.WithField("destination", dest.Code).Debug("route recovered")
	}

	removed, err := t.storage.ExpireRoutes(now.Add(-store.RouteTTL))
	if err != nil {
		return store.Run{}, fmt.Errorf("error expiring routes: %w", err)
	}

	if err := t.storage.SavePlanes(planes); err != nil {
		return store.Run{}, fmt.Errorf("error saving planes: %w", err)
	}
	if err := t.writePlanes(planes); err != nil {
		log.WithError(err).Error("error writing active planes file")
	}

	count, err := t.storage.RouteCount()
	if err != nil {
		return store.Run{}, err
	}

	run := store.Run{
		Time:         now,
		Routes:       count,
		ActivePlanes: len(planes),
		Recovered:    recovered,
		Removed:      removed,
	}
	if err := t.storage.RecordRun(run); err != nil {
		return store.Run{}, fmt.Errorf("error recording run: %w", err)
	}
	if err := t.storage.PruneRuns(now.Add(-24 * time.Hour)); err != nil {
		log.WithError(err).Error("error pruning runs")
	}

	log.WithFields(logrus.Fields{
		"states":    len(states),
		"planes":    run.ActivePlanes,
		"routes":    run.Routes,
		"recovered": run.Recovered,
		"removed":   run.Removed,
	}).Info("routes updated")

	t.Notify(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: ObjectTypeRun, Obj: run})
	t.Fin()
	return run, nil
}

// Totals reports route and plane counters as of now.
func (t *Tracker) Totals(now time.Time) (Totals, error) {
	stats, err := t.storage.Stats()
	if err != nil {
		return Totals{}, err
	}
	recovered, removed, err := t.storage.RunTotals(now.Add(-time.Hour))
	if err != nil {
		return Totals{}, err
	}
	count, err := t.storage.RouteCount()
	if err != nil {
		return Totals{}, err
	}
	return Totals{
		Routes:            count,
		ActivePlanes:      stats.ActivePlanes,
		RecoveredLastHour: recovered,
		RemovedLastHour:   removed,
	}, nil
}

func (t *Tracker) writePlanes(planes map[string]flights.ActiveFlight) error {
	if t.cfg.PlanesFile == "" {
		return nil
	}
	data, err := json.Marshal(planes)
	if err != nil {
		return err
	}
	tmp := t.cfg.PlanesFile + ".tmp"
	if err := os.MkdirAll(filepath.Dir(t.cfg.PlanesFile), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, t.cfg.PlanesFile)
}
