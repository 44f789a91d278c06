package merged

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/flights"
	"github.com/vatsimnerd/routemap/mapview"
	"github.com/vatsimnerd/routemap/tracker"
	"github.com/vatsimnerd/util/pubsub"
)

var (
	log = logrus.WithField("module", "merged")

	ErrSessionNotFound = fmt.Errorf("session not found")
)

const (
	// SessionTTL is how long an untouched session survives.
	SessionTTL = 6 * time.Hour
)

// Hub merges the dataset, flights and tracker providers into per-session map
// views.
type Hub struct {
	datasets *dataset.Provider
	flights  *flights.Provider
	tracker  *tracker.Tracker

	stop    chan bool
	stopped bool

	// looking a session up renews its ttl
	sessions *expirable.LRU[string, *Session]
	info     mapview.Info

	dataLock sync.RWMutex
}

func New(datasets *dataset.Provider, flights *flights.Provider, tracker *tracker.Tracker) *Hub {
	return newHub(datasets, flights, tracker, SessionTTL)
}

func newHub(datasets *dataset.Provider, flights *flights.Provider, tracker *tracker.Tracker, ttl time.Duration) *Hub {
	return &Hub{
		datasets: datasets,
		flights:  flights,
		tracker:  tracker,
		stop:     make(chan bool),
		stopped:  false,
		sessions: expirable.NewLRU[string, *Session](0, func(id string, _ *Session) {
			log.WithField("session", id).Debug("session dropped")
		}, ttl),
	}
}

func (h *Hub) Start() error {
	if h.stopped {
		return fmt.Errorf("can't start once stopped hub")
	}
	go h.loop()
	return nil
}

func (h *Hub) Stop() {
	h.stop <- true
}

func (h *Hub) loop() {
	dsub := h.datasets.Subscribe(1024)
	fsub := h.flights.Subscribe(32768)

	var runUpdates <-chan pubsub.Update
	if h.tracker != nil {
		tsub := h.tracker.Subscribe(1024)
		runUpdates = tsub.Updates()
	}

	h.datasets.Start()
	defer h.datasets.Stop()
	h.flights.Start()
	defer h.flights.Stop()

	h.RefreshInfo()

	flightCount := 0
loop:
	for {
		select {
		case upd := <-dsub.Updates():
			h.handleDataset(upd)
		case upd := <-fsub.Updates():
			flightCount++
			if flightCount%1000 == 0 {
				log.Debugf("accumulated %d updates from flights provider", flightCount)
			}
			h.handleFlight(upd)
		case upd := <-runUpdates:
			if upd.UType == pubsub.UpdateTypeSet && upd.OType == tracker.ObjectTypeRun {
				h.RefreshInfo()
			}
		case <-h.stop:
			h.stopped = true
			break loop
		}
	}
}

func (h *Hub) handleDataset(upd pubsub.Update) {
	if upd.UType != pubsub.UpdateTypeSet || upd.OType != dataset.ObjectTypeDataset {
		return
	}
	ds, ok := upd.Obj.(*dataset.Dataset)
	if !ok {
		log.Errorf("object is expected to be *Dataset, got %T", upd.Obj)
		return
	}
	// existing views keep the dataset they were built from
	log.WithField("airports", len(ds.Airports)).Info("dataset updated")
	h.RefreshInfo()
}

func (h *Hub) handleFlight(upd pubsub.Update) {
	switch upd.UType {
	case pubsub.UpdateTypeSet:
		f, ok := upd.Obj.(flights.ActiveFlight)
		if !ok {
			log.Errorf("object is expected to be ActiveFlight, got %T", upd.Obj)
			return
		}
		h.eachSession(func(v *mapview.View) bool {
			return v.UpsertFlight(f)
		})
	case pubsub.UpdateTypeDelete:
		f, ok := upd.Obj.(flights.ActiveFlight)
		if !ok {
			log.Errorf("object is expected to be ActiveFlight, got %T", upd.Obj)
			return
		}
		h.eachSession(func(v *mapview.View) bool {
			return v.RemoveFlight(f.ICAO24)
		})
	case pubsub.UpdateTypeFin:
		h.RefreshInfo()
	}
}

func (h *Hub) eachSession(fn func(v *mapview.View) bool) {
	for _, s := range h.sessions.Values() {
		s.apply(fn)
	}
}

// Info returns the latest counters.
func (h *Hub) Info() mapview.Info {
	h.dataLock.RLock()
	defer h.dataLock.RUnlock()
	return h.info
}

// RefreshInfo recomputes the counters and pushes them to every session.
func (h *Hub) RefreshInfo() mapview.Info {
	info := mapview.Info{
		ActiveAirports: len(h.datasets.Dataset().Airports),
		ActivePlanes:   h.flights.Count(),
	}
	if h.tracker != nil {
		totals, err := h.tracker.Totals(time.Now().UTC())
		if err != nil {
			log.WithError(err).Error("error reading tracker totals")
		} else {
			info.ActivePlanes = totals.ActivePlanes
			info.Routes = totals.Routes
			info.RecoveredLastHour = totals.RecoveredLastHour
			info.RemovedLastHour = totals.RemovedLastHour
		}
	}

	h.dataLock.Lock()
	changed := h.info != info
	h.info = info
	h.dataLock.Unlock()

	if changed {
		h.eachSession(func(v *mapview.View) bool {
			v.SetInfo(info)
			return true
		})
	}
	return info
}

// Create opens a session on the latest dataset.
func (h *Hub) Create() *Session {
	v := mapview.New(h.datasets.Dataset())
	v.SetInfo(h.RefreshInfo())

	s := newSession(uuid.New().String(), v)
	h.sessions.Add(s.ID, s)

	log.WithFields(logrus.Fields{"session": s.ID, "sessions": h.sessions.Len()}).Debug("session created")
	return s
}

// Session looks a session up and keeps it alive for another ttl.
func (h *Hub) Session(id string) (*Session, error) {
	s, found := h.sessions.Get(id)
	if !found {
		return nil, ErrSessionNotFound
	}
	h.sessions.Add(id, s)
	return s, nil
}

func (h *Hub) Delete(id string) error {
	if !h.sessions.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}

func (h *Hub) Count() int {
	return h.sessions.Len()
}

// ShowPlanes toggles plane markers of a session, seeding them from the
// current flights snapshot.
func (h *Hub) ShowPlanes(s *Session, show bool) error {
	return s.Do(func(v *mapview.View) error {
		var snapshot map[string]flights.ActiveFlight
		if show {
			snapshot = h.flights.Flights()
		}
		v.SetShowPlanes(show, snapshot)
		return nil
	})
}
