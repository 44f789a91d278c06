package builder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/routemap"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/ourairports"
	"github.com/vatsimnerd/routemap/store"
)

var (
	log = logrus.WithField("module", "builder")
)

// AirportSource provides reference airports filtered by continent.
type AirportSource interface {
	Airports(continents []string) []ourairports.Airport
}

type Result struct {
	Airports int `json:"airports"`
	Routes   int `json:"routes"`
}

// Builder turns stored routes into the airports.json dataset.
type Builder struct {
	cfg      *Config
	airports AirportSource
	storage  *store.Storage
	settings *routemap.SettingsStore
	target   *dataset.Provider

	lock sync.Mutex
}

func New(cfg *Config, airports AirportSource, storage *store.Storage, settings *routemap.SettingsStore, target *dataset.Provider) *Builder {
	return &Builder{
		cfg:      cfg,
		airports: airports,
		storage:  storage,
		settings: settings,
		target:   target,
	}
}

// Update rebuilds the dataset, writes it to the output file and installs it
// into the dataset provider.
func (b *Builder) Update() (Result, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	airlines := make(map[string]string)
	if b.cfg.AirlinesURL != "" {
		raw, err := routemap.FetchOnce(b.cfg.AirlinesURL, b.cfg.Timeout)
		if err != nil {
			// routes keep their airline codes as names
			log.WithError(err).Error("error fetching airlines")
		} else {
			airlines = ParseAirlines(raw)
		}
	}

	routes, err := b.storage.Routes(time.Now().UTC())
	if err != nil {
		return Result{}, fmt.Errorf("error loading routes: %w", err)
	}

	settings := b.settings.Get()
	airports := Build(
		routes,
		b.airports.Airports(settings.AirportContinents),
		b.airports.Airports(nil),
		airlines,
	)

	if b.cfg.Output != "" {
		if err := writeJSON(b.cfg.Output, airports); err != nil {
			return Result{}, fmt.Errorf("error writing %s: %w", b.cfg.Output, err)
		}
	}

	ds := dataset.Build(airports)
	if b.target != nil {
		b.target.Replace(ds)
	}

	res := Result{Airports: len(ds.Airports), Routes: ds.RouteCount()}
	log.WithFields(logrus.Fields{
		"airports": res.Airports,
		"routes":   res.Routes,
	}).Info("dataset rebuilt")
	return res, nil
}

// Build attaches routes to their source airports. Sources are limited to
// origins, destinations may be any known airport. Only airports with at
// least one route are returned, ordered by code.
func Build(routes []store.Route, origins []ourairports.Airport, all []ourairports.Airport, airlines map[string]string) []dataset.Airport {
	known := make(map[string]ourairports.Airport, len(all))
	for _, a := range all {
		known[a.Code] = a
	}

	sources := make(map[string]*dataset.Airport, len(origins))
	for _, a := range origins {
		sources[a.Code] = &dataset.Airport{
			Code:        a.Code,
			Name:        a.Name,
			Lat:         a.Latitude,
			Lon:         a.Longitude,
			Country:     a.Country,
			CountryCode: a.CountryCode,
			Routes:      make([]dataset.Route, 0),
		}
	}

	for _, r := range routes {
		src, found := sources[r.Source]
		if !found {
			continue
		}
		dest, found := known[r.Destination]
		if !found {
			continue
		}

		name := r.Airline
		if n, found := airlines[r.Airline]; found {
			name = n
		}

		src.Routes = append(src.Routes, dataset.Route{
			From:         dataset.Coord{src.Lat, src.Lon},
			To:           dataset.Coord{dest.Latitude, dest.Longitude},
			FromName:     src.Name,
			ToName:       dest.Name,
			Airline:      name,
			AirlineCode:  r.Airline,
			FlightNumber: r.FlightNumber,
		})
	}

	res := make([]dataset.Airport, 0)
	for _, a := range sources {
		if len(a.Routes) > 0 {
			res = append(res, *a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res
}

func writeJSON(filename string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filename)
}
