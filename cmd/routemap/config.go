package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vatsimnerd/routemap/builder"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/flights"
	"github.com/vatsimnerd/routemap/opensky"
	"github.com/vatsimnerd/routemap/ourairports"
	"github.com/vatsimnerd/routemap/server"
	"github.com/vatsimnerd/routemap/tracker"
	"gopkg.in/yaml.v3"
)

const (
	openflightsAirlinesURL = "https://raw.githubusercontent.com/jpatokal/openflights/master/data/airlines.dat"
)

type LogFileConfig struct {
	Filename   string `yaml:"filename,omitempty"`
	MaxSize    int    `yaml:"max_size,omitempty"` // MB
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAge     int    `yaml:"max_age,omitempty"` // days
	Compress   bool   `yaml:"compress,omitempty"`
}

type Config struct {
	LogLevel string        `yaml:"log_level,omitempty"`
	LogFile  LogFileConfig `yaml:"log_file,omitempty"`
	DataDir  string        `yaml:"data_dir,omitempty"`
	Database string        `yaml:"database,omitempty"`

	Server      server.Config      `yaml:"server"`
	Dataset     dataset.Config     `yaml:"dataset"`
	Flights     flights.Config     `yaml:"flights"`
	OurAirports ourairports.Config `yaml:"ourairports"`
	Tracker     tracker.Config     `yaml:"tracker"`
	Builder     builder.Config     `yaml:"builder"`
}

// LoadConfig reads a YAML config. A missing file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading config %s: %w", filename, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config %s: %w", filename, err)
		}
	}

	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFile.Filename != "" && c.LogFile.MaxSize <= 0 {
		c.LogFile.MaxSize = 64
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Database == "" {
		c.Database = filepath.Join(c.DataDir, "routemap.db")
	}

	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
	if c.Server.DataDir == "" {
		c.Server.DataDir = c.DataDir
	}
	if c.Server.PublicDir == "" {
		c.Server.PublicDir = "public"
	}

	if c.Builder.Output == "" {
		c.Builder.Output = filepath.Join(c.DataDir, "airports.json")
	}
	if c.Builder.AirlinesURL == "" {
		c.Builder.AirlinesURL = openflightsAirlinesURL
	}
	if c.Builder.Timeout <= 0 {
		c.Builder.Timeout = 30 * time.Second
	}

	if c.Dataset.URL == "" {
		c.Dataset.URL = c.Builder.Output
	}
	c.Dataset.Poll = c.Dataset.Poll.WithDefaults(time.Minute, 10*time.Second)
	c.Dataset.Boot = c.Dataset.Boot.WithDefaults(3, 5*time.Second)

	if c.Tracker.URL == "" {
		c.Tracker.URL = opensky.DefaultBaseURL
	}
	if c.Tracker.PlanesFile == "" {
		c.Tracker.PlanesFile = filepath.Join(c.DataDir, "active_planes.json")
	}
	// tracker.poll.period stays 0 unless configured: OpenSky rate limits
	// anonymous clients, so runs are triggered through the API by default
	if c.Tracker.Poll.Timeout <= 0 {
		c.Tracker.Poll.Timeout = 30 * time.Second
	}
	c.Tracker.Boot = c.Tracker.Boot.WithDefaults(3, 10*time.Second)

	if c.Flights.URL == "" {
		c.Flights.URL = c.Tracker.PlanesFile
	}
	c.Flights.Poll = c.Flights.Poll.WithDefaults(time.Minute, 10*time.Second)
	c.Flights.Boot = c.Flights.Boot.WithDefaults(3, 5*time.Second)

	if c.OurAirports.AirportsURL == "" {
		c.OurAirports.AirportsURL = ourairports.OurairportsAirportsURL
	}
	if c.OurAirports.CountriesURL == "" {
		c.OurAirports.CountriesURL = ourairports.OurairportsCountriesURL
	}
	c.OurAirports.Poll = c.OurAirports.Poll.WithDefaults(24*time.Hour, time.Minute)
	c.OurAirports.Boot = c.OurAirports.Boot.WithDefaults(5, 10*time.Second)
}
