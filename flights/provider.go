package flights

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/routemap"
	"github.com/vatsimnerd/util/mapupdate"
	"github.com/vatsimnerd/util/pubsub"
)

type Provider struct {
	*pubsub.Provider

	cfg *Config

	stop    chan bool
	stopped bool

	flights map[string]ActiveFlight

	dataLock sync.RWMutex
}

const (
	ObjectTypeFlight pubsub.ObjectType = 500 + iota
)

var (
	log = logrus.WithField("module", "flights")
)

func New(cfg *Config) *Provider {
	return &Provider{
		Provider: pubsub.NewProvider(),
		cfg:      cfg,
		stop:     make(chan bool),
		stopped:  false,
		flights:  make(map[string]ActiveFlight),
	}
}

func (p *Provider) Start() error {
	if p.stopped {
		return fmt.Errorf("can't start once stopped provider")
	}
	go p.loop()
	return nil
}

func (p *Provider) Stop() {
	p.stop <- true
}

// Flights returns a copy of the latest snapshot.
func (p *Provider) Flights() map[string]ActiveFlight {
	p.dataLock.RLock()
	defer p.dataLock.RUnlock()
	res := make(map[string]ActiveFlight, len(p.flights))
	for k, v := range p.flights {
		res[k] = v
	}
	return res
}

func (p *Provider) Count() int {
	p.dataLock.RLock()
	defer p.dataLock.RUnlock()
	return len(p.flights)
}

func (p *Provider) loop() {
	defer p.Dispose()

	p.SetInitialNotifier(func(sub pubsub.Subscription) {
		// make notifier async to avoid reaching chan buffer limit
		go func() {
			p.dataLock.RLock()
			defer p.dataLock.RUnlock()
			for _, f := range p.flights {
				sub.Send(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: ObjectTypeFlight, Obj: f})
			}
			sub.Fin()
		}()
	})

	for {
		rawChan, stopSource, err := routemap.Open(p.cfg.URL, p.cfg.Poll, p.cfg.Boot)
		if err != nil {
			log.WithError(err).WithField("url", p.cfg.URL).Error("error fetching active planes")
			select {
			case <-time.After(retryPeriod(p.cfg.Poll)):
				continue
			case <-p.stop:
				p.stopped = true
				return
			}
		}

	loop:
		for {
			select {
			case raw := <-rawChan:
				log.Debug("got update from active planes poller")
				p.Apply(raw)
			case <-p.stop:
				break loop
			}
		}
		p.stopped = true
		stopSource()
		return
	}
}

// Apply replaces the snapshot with the decoded payload and notifies Set for
// new or changed aircraft and Delete for aircraft missing from it.
func (p *Provider) Apply(raw []byte) {
	flights, err := Decode(raw)
	if err != nil {
		log.WithError(err).Error("error unmarshalling active planes data")
	}

	flightSet, flightDel := mapupdate.Update[ActiveFlight, mapupdate.Comparable[ActiveFlight]](p.flights, flights, &p.dataLock)
	log.WithFields(logrus.Fields{
		"set":    len(flightSet),
		"delete": len(flightDel),
	}).Debug("active planes updated")

	for _, update := range pubsub.MakeUpdates(flightSet, flightDel, ObjectTypeFlight) {
		p.Notify(update)
	}
	p.Fin()

	p.SetDataReady(true)
}

func retryPeriod(poll routemap.PollConfig) time.Duration {
	if poll.Period > 0 {
		return poll.Period
	}
	return time.Minute
}
