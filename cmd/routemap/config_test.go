package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8000", cfg.Server.Listen)
	assert.Equal(t, filepath.Join("data", "airports.json"), cfg.Dataset.URL)
	assert.Equal(t, filepath.Join("data", "active_planes.json"), cfg.Flights.URL)
	assert.Equal(t, time.Minute, cfg.Flights.Poll.Period)
	assert.Equal(t, 24*time.Hour, cfg.OurAirports.Poll.Period)
	assert.Zero(t, cfg.Tracker.Poll.Period)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routemap.yaml")
	raw := `
log_level: debug
log_file:
  filename: /var/log/routemap.log
data_dir: /var/lib/routemap
server:
  listen: 127.0.0.1:9000
flights:
  url: https://example.com/active-planes
  poll:
    period: 30s
tracker:
  username: alice
  poll:
    period: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/log/routemap.log", cfg.LogFile.Filename)
	assert.Equal(t, 64, cfg.LogFile.MaxSize)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, "/var/lib/routemap", cfg.Server.DataDir)
	assert.Equal(t, "/var/lib/routemap/routemap.db", cfg.Database)
	assert.Equal(t, "https://example.com/active-planes", cfg.Flights.URL)
	assert.Equal(t, 30*time.Second, cfg.Flights.Poll.Period)
	assert.Equal(t, 5*time.Minute, cfg.Tracker.Poll.Period)
	assert.Equal(t, "alice", cfg.Tracker.Username)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routemap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
