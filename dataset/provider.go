package dataset

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/routemap"
	"github.com/vatsimnerd/util/pubsub"
)

type Provider struct {
	*pubsub.Provider

	cfg *Config

	stop    chan bool
	stopped bool

	data    *Dataset
	lastRaw []byte

	dataLock sync.RWMutex
}

var (
	log = logrus.WithField("module", "dataset")
)

const (
	ObjectTypeDataset pubsub.ObjectType = 400 + iota
)

func New(cfg *Config) *Provider {
	return &Provider{
		Provider: pubsub.NewProvider(),
		cfg:      cfg,
		stop:     make(chan bool),
		stopped:  false,
		data:     Empty(),
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

// Dataset returns the latest dataset, never nil.
func (p *Provider) Dataset() *Dataset {
	p.dataLock.RLock()
	defer p.dataLock.RUnlock()
	return p.data
}

// Replace installs a dataset built in-process and notifies subscribers.
func (p *Provider) Replace(ds *Dataset) {
	p.dataLock.Lock()
	p.data = ds
	p.lastRaw = nil
	p.dataLock.Unlock()

	p.Notify(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: ObjectTypeDataset, Obj: ds})
	p.Fin()
}

func (p *Provider) loop() {
	defer p.Dispose()

	p.SetInitialNotifier(func(sub pubsub.Subscription) {
		go func() {
			sub.Send(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: ObjectTypeDataset, Obj: p.Dataset()})
			sub.Fin()
		}()
	})

	for {
		rawChan, stopSource, err := routemap.Open(p.cfg.URL, p.cfg.Poll, p.cfg.Boot)
		if err != nil {
			log.WithError(err).WithField("url", p.cfg.URL).Error("failed to load airports data, proceeding with empty set")
			p.SetDataReady(true)
			select {
			case <-time.After(retryPeriod(p.cfg.Poll)):
				continue
			case <-p.stop:
				p.stopped = true
				return
			}
		}

		for {
			select {
			case raw := <-rawChan:
				log.Debug("got update from airports poller")
				p.update(raw)
			case <-p.stop:
				p.stopped = true
				stopSource()
				return
			}
		}
	}
}

func (p *Provider) update(raw []byte) {
	p.dataLock.RLock()
	same := p.lastRaw != nil && bytes.Equal(p.lastRaw, raw)
	p.dataLock.RUnlock()
	if same {
		p.SetDataReady(true)
		return
	}

	ds, err := Decode(raw)
	if err != nil {
		log.WithError(err).Error("invalid airports data, proceeding with empty set")
	}
	log.WithFields(logrus.Fields{
		"airports": len(ds.Airports),
		"airlines": len(ds.Airlines),
	}).Info("airports data loaded")

	p.dataLock.Lock()
	p.data = ds
	p.lastRaw = raw
	p.dataLock.Unlock()

	p.Notify(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: ObjectTypeDataset, Obj: ds})
	p.Fin()
	p.SetDataReady(true)
}

func retryPeriod(poll routemap.PollConfig) time.Duration {
	if poll.Period > 0 {
		return poll.Period
	}
	return time.Minute
}
