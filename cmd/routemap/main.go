package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/routemap"
	"github.com/vatsimnerd/routemap/builder"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/flights"
	"github.com/vatsimnerd/routemap/merged"
	"github.com/vatsimnerd/routemap/ourairports"
	"github.com/vatsimnerd/routemap/server"
	"github.com/vatsimnerd/routemap/store"
	"github.com/vatsimnerd/routemap/tracker"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	log = logrus.WithField("module", "main")
)

func main() {
	configPath := flag.String("config", "routemap.yaml", "path to the config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("error loading config")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("invalid log level")
	}
	logrus.SetLevel(level)
	if cfg.LogFile.Filename != "" {
		logrus.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile.Filename,
			MaxSize:    cfg.LogFile.MaxSize,
			MaxBackups: cfg.LogFile.MaxBackups,
			MaxAge:     cfg.LogFile.MaxAge,
			Compress:   cfg.LogFile.Compress,
		}))
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.WithError(err).Fatal("error creating data dir")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := store.Open(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("error opening database")
	}
	defer storage.Close()

	settings, err := routemap.LoadSettings(filepath.Join(cfg.DataDir, "config.json"))
	if err != nil {
		log.WithError(err).Fatal("error loading settings")
	}

	// runs under the tracker, which rebuilds its airport index on updates
	airports := ourairports.New(&cfg.OurAirports)

	datasets := dataset.New(&cfg.Dataset)
	fp := flights.New(&cfg.Flights)

	tr := tracker.New(&cfg.Tracker, storage, airports, settings)
	tr.Start()
	defer tr.Stop()

	b := builder.New(&cfg.Builder, airports, storage, settings, datasets)

	hub := merged.New(datasets, fp, tr)
	hub.Start()
	defer hub.Stop()

	srv := server.New(&cfg.Server, server.Deps{
		Hub:      hub,
		Datasets: datasets,
		Tracker:  tr,
		Builder:  b,
		Storage:  storage,
		Settings: settings,
	})
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("http server failed")
	}
	log.Info("shutting down")
}
