package server

import (
	"net/http"
	"time"
)

func (s *Server) getAirports(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Datasets.Dataset().Airports)
}

func (s *Server) getActivePlanes(w http.ResponseWriter, r *http.Request) {
	planes, err := s.deps.Storage.Planes()
	if err != nil {
		log.WithError(err).Error("error loading active planes")
		respondError(w, http.StatusInternalServerError, "failed to load active planes")
		return
	}
	respondJSON(w, http.StatusOK, planes)
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Hub.RefreshInfo())
}

func (s *Server) updateRoutes(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Tracker.UpdateNow(r.Context())
	if err != nil {
		log.WithError(err).Error("error updating routes")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) updateAirports(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Builder.Update()
	if err != nil {
		log.WithError(err).Error("error updating airports")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) getRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := s.deps.Storage.Routes(time.Now().UTC())
	if err != nil {
		log.WithError(err).Error("error loading routes")
		respondError(w, http.StatusInternalServerError, "failed to load routes")
		return
	}
	respondJSON(w, http.StatusOK, routes)
}

func (s *Server) getRoutesStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Storage.Stats()
	if err != nil {
		log.WithError(err).Error("error loading route stats")
		respondError(w, http.StatusInternalServerError, "failed to load route stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
