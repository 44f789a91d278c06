package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vatsimnerd/routemap/mapview"
	"github.com/vatsimnerd/routemap/merged"
)

const (
	liveWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
}

type liveMessage struct {
	State ViewState       `json:"state"`
	Map   json.RawMessage `json:"map"`
}

func snapshot(sess *merged.Session) (liveMessage, error) {
	var msg liveMessage
	err := sess.Do(func(v *mapview.View) error {
		data, err := mapview.Render(v).MarshalJSON()
		if err != nil {
			return err
		}
		msg.State = stateOf(sess.ID, v)
		msg.Map = data
		return nil
	})
	return msg, err
}

// liveView pushes the view state and map every time provider updates change
// the view, so the page doesn't have to poll for planes.
func (s *Server) liveView(w http.ResponseWriter, r *http.Request, sess *merged.Session) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	llog := log.WithField("session", sess.ID)
	llog.Debug("live connection opened")
	defer llog.Debug("live connection closed")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		// keeps the session alive, and ends the stream once it is gone
		if _, err := s.deps.Hub.Session(sess.ID); err != nil {
			return err
		}
		msg, err := snapshot(sess)
		if err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		return conn.WriteJSON(msg)
	}

	if err := send(); err != nil {
		llog.WithError(err).Debug("error sending view")
		return
	}
	for {
		select {
		case <-sess.Changed():
			if err := send(); err != nil {
				llog.WithError(err).Debug("error sending view")
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
