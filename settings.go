package routemap

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/vatsimnerd/util/set"
)

// Continents is the list of OurAirports continent codes accepted by the
// runtime settings.
var Continents = []string{"AF", "AN", "AS", "EU", "NA", "OC", "SA"}

// Settings are the runtime options editable from the admin API.
type Settings struct {
	// AirportContinents limits the airports published in the dataset.
	AirportContinents []string `json:"airport_continents"`
	// FlightContinents limits tracked flights by the continent of their
	// origin airport. Empty means every continent.
	FlightContinents []string `json:"flight_continents"`
}

func DefaultSettings() Settings {
	return Settings{
		AirportContinents: []string{"EU"},
		FlightContinents:  []string{},
	}
}

// Validate rejects unknown continent codes.
func (s Settings) Validate() error {
	known := set.FromList(Continents)
	for _, list := range [][]string{s.AirportContinents, s.FlightContinents} {
		for _, c := range list {
			if !known.Has(c) {
				return fmt.Errorf("unknown continent '%s'", c)
			}
		}
	}
	return nil
}

// SettingsStore keeps Settings in memory and persists them as JSON.
type SettingsStore struct {
	path     string
	settings Settings
	lock     sync.RWMutex
}

// LoadSettings reads settings from path. A missing file yields the defaults.
func LoadSettings(path string) (*SettingsStore, error) {
	s := &SettingsStore{path: path, settings: DefaultSettings()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading settings %s: %w", path, err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("error parsing settings %s: %w", path, err)
	}
	if settings.AirportContinents == nil {
		settings.AirportContinents = DefaultSettings().AirportContinents
	}
	if settings.FlightContinents == nil {
		settings.FlightContinents = []string{}
	}
	s.settings = settings
	return s, nil
}

func (s *SettingsStore) Get() Settings {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return Settings{
		AirportContinents: append([]string{}, s.settings.AirportContinents...),
		FlightContinents:  append([]string{}, s.settings.FlightContinents...),
	}
}

// Set validates and persists settings.
func (s *SettingsStore) Set(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if settings.AirportContinents == nil {
		settings.AirportContinents = []string{}
	}
	if settings.FlightContinents == nil {
		settings.FlightContinents = []string{}
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("error saving settings %s: %w", s.path, err)
	}
	s.settings = settings
	log.WithField("settings", settings).Info("settings updated")
	return nil
}
