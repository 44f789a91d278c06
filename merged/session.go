package merged

import (
	"sync"

	"github.com/vatsimnerd/routemap/mapview"
)

// Session is one browser's map view. All access to the view goes through Do.
type Session struct {
	ID string

	view    *mapview.View
	changed chan struct{}
	lock    sync.Mutex
}

func newSession(id string, v *mapview.View) *Session {
	return &Session{
		ID:      id,
		view:    v,
		changed: make(chan struct{}, 1),
	}
}

// Changed fires after the view was changed by a provider update rather than
// by the session owner.
func (s *Session) Changed() <-chan struct{} {
	return s.changed
}

// Do runs fn with exclusive access to the view.
func (s *Session) Do(fn func(v *mapview.View) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return fn(s.view)
}

// apply changes the view on behalf of a provider. fn reports whether the view
// changed.
func (s *Session) apply(fn func(v *mapview.View) bool) {
	s.lock.Lock()
	changed := fn(s.view)
	s.lock.Unlock()
	if !changed {
		return
	}

	select {
	case s.changed <- struct{}{}:
	default:
	}
}
