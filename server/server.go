package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/routemap"
	"github.com/vatsimnerd/routemap/builder"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/merged"
	"github.com/vatsimnerd/routemap/store"
	"github.com/vatsimnerd/routemap/tracker"
)

var (
	log = logrus.WithField("module", "server")
)

// Deps are the components the HTTP API is served from.
type Deps struct {
	Hub      *merged.Hub
	Datasets *dataset.Provider
	Tracker  *tracker.Tracker
	Builder  *builder.Builder
	Storage  *store.Storage
	Settings *routemap.SettingsStore
}

type Server struct {
	cfg    *Config
	deps   Deps
	router *mux.Router
}

func New(cfg *Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	// Data
	s.router.HandleFunc("/airports.json", s.getAirports).Methods("GET")
	s.router.HandleFunc("/active-planes", s.getActivePlanes).Methods("GET")
	s.router.HandleFunc("/active-flights", s.getActivePlanes).Methods("GET")
	s.router.HandleFunc("/info", s.getInfo).Methods("GET")
	s.router.HandleFunc("/update-routes", s.updateRoutes).Methods("POST")
	s.router.HandleFunc("/update-flights", s.updateRoutes).Methods("POST")
	s.router.HandleFunc("/update-airports", s.updateAirports).Methods("POST")
	s.router.HandleFunc("/routes-db", s.getRoutes).Methods("GET")
	s.router.HandleFunc("/routes-stats", s.getRoutesStats).Methods("GET")

	// Admin
	s.router.HandleFunc("/admin/files", s.listFiles).Methods("GET")
	s.router.HandleFunc("/admin/download/{name}", s.downloadFile).Methods("GET")
	s.router.HandleFunc("/admin/upload/{name}", s.uploadFile).Methods("POST")
	s.router.HandleFunc("/admin/delete/{name}", s.deleteFile).Methods("DELETE")
	s.router.HandleFunc("/admin/config", s.getConfig).Methods("GET")
	s.router.HandleFunc("/admin/config", s.setConfig).Methods("POST")

	// Map views
	s.router.HandleFunc("/views", s.createView).Methods("POST")
	s.router.HandleFunc("/views/{id}", s.withSession(s.deleteView)).Methods("DELETE")
	s.router.HandleFunc("/views/{id}/map", s.withSession(s.getMap)).Methods("GET")
	s.router.HandleFunc("/views/{id}/state", s.withSession(s.getState)).Methods("GET")
	s.router.HandleFunc("/views/{id}/airports/{code}/toggle", s.withSession(s.toggleAirport)).Methods("POST")
	s.router.HandleFunc("/views/{id}/lines/{line:[0-9]+}/toggle", s.withSession(s.toggleLine)).Methods("POST")
	s.router.HandleFunc("/views/{id}/filter", s.withSession(s.setFilter)).Methods("PUT")
	s.router.HandleFunc("/views/{id}/reset", s.withSession(s.resetView)).Methods("POST")
	s.router.HandleFunc("/views/{id}/planes", s.withSession(s.setPlanes)).Methods("PUT")
	s.router.HandleFunc("/views/{id}/live", s.withSession(s.liveView)).Methods("GET")

	// Static files go last so the API takes precedence
	if s.cfg.PublicDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.PublicDir)))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("listen", s.cfg.Listen).Info("starting http server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(started),
		}).Trace("request served")
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("error encoding response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
