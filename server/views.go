package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/mapview"
	"github.com/vatsimnerd/routemap/merged"
)

// ViewState is everything the page needs besides the map features.
type ViewState struct {
	ID           string            `json:"id"`
	Path         string            `json:"path"`
	ResetVisible bool              `json:"reset_visible"`
	Stats        string            `json:"stats"`
	Filter       mapview.Filter    `json:"filter"`
	ShowPlanes   bool              `json:"show_planes"`
	Selected     []int             `json:"selected"`
	Airlines     []string          `json:"airlines"`
	Countries    []dataset.Country `json:"countries"`
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *merged.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.deps.Hub.Session(mux.Vars(r)["id"])
		if err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h(w, r, sess)
	}
}

func stateOf(id string, v *mapview.View) ViewState {
	selected := make([]int, 0)
	for _, item := range v.Selected() {
		selected = append(selected, item.Line)
	}
	ds := v.Dataset()
	return ViewState{
		ID:           id,
		Path:         v.Path(),
		ResetVisible: v.ResetVisible(),
		Stats:        v.Stats(),
		Filter:       v.Filter(),
		ShowPlanes:   v.ShowPlanes(),
		Selected:     selected,
		Airlines:     ds.Airlines,
		Countries:    ds.Countries,
	}
}

func viewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mapview.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, mapview.ErrHidden):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// mutate applies fn to the session view and responds with the new state.
func mutate(w http.ResponseWriter, sess *merged.Session, fn func(v *mapview.View) error) {
	var state ViewState
	err := sess.Do(func(v *mapview.View) error {
		if err := fn(v); err != nil {
			return err
		}
		state = stateOf(sess.ID, v)
		return nil
	})
	if err != nil {
		viewError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) createView(w http.ResponseWriter, r *http.Request) {
	sess := s.deps.Hub.Create()
	var state ViewState
	sess.Do(func(v *mapview.View) error {
		state = stateOf(sess.ID, v)
		return nil
	})
	respondJSON(w, http.StatusCreated, state)
}

func (s *Server) deleteView(w http.ResponseWriter, r *http.Request, sess *merged.Session) {
	if err := s.deps.Hub.Delete(sess.ID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getMap(w http.ResponseWriter, r *http.Request, sess *merged.Session) {
	var data []byte
	err := sess.Do(func(v *mapview.View) error {
		var err error
		data, err = mapview.Render(v).MarshalJSON()
		return err
	})
	if err != nil {
		log.WithError(err).Error("error rendering map")
		respondError(w, http.StatusInternalServerError, "failed to render map")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request, sess *merged.Session) {
	mutate(w, sess, func(v *mapview.View) error { return nil })
}

func (s *Server) toggleAirport(w http.ResponseWriter, r *http.Request, sess *merged.Session) {
	code := mux.Vars(r)["code"]
	mutate(w, sess, func(v *mapview.View) error { return v.ToggleAirport(code) })
}

func (s *Server) toggleLine(w http.ResponseWriter, r *http.Request, sess *merged.Session) {
	id, err := strconv.Atoi(mux.Vars(r)["line"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid line id")
		return
	}
	mutate(w, sess, func(v *mapview.View) error { return v.ToggleRoute(id) })
}

func (s *Server) setFilter(w http.ResponseWriter, r *http.Request, sess *merged.Session) {
	var f mapview.Filter
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		respondError(w, http.StatusBadRequest, "invalid filter payload")
		return
	}
	mutate(w, sess, func(v *mapview.View) error {
		v.SetFilter(f)
		return nil
	})
}

func (s *Server) resetView(w http.ResponseWriter, r *http.Request, sess *merged.Session) {
	mutate(w, sess, func(v *mapview.View) error {
		v.Reset()
		return nil
	})
}

func (s *Server) setPlanes(w http.ResponseWriter, r *http.Request, sess *merged.Session) {
	var req struct {
		Show bool `json:"show"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid planes payload")
		return
	}
	if err := s.deps.Hub.ShowPlanes(sess, req.Show); err != nil {
		viewError(w, err)
		return
	}
	mutate(w, sess, func(v *mapview.View) error { return nil })
}
