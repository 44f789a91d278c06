package ourairports

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/routemap"
	"github.com/vatsimnerd/util/mapupdate"
	"github.com/vatsimnerd/util/pubsub"
	"github.com/vatsimnerd/util/set"
)

type Provider struct {
	*pubsub.Provider

	cfg *Config

	stop    chan bool
	stopped bool

	airports  map[string]Airport
	countries map[string]Country

	dataLock sync.RWMutex
}

var (
	log = logrus.WithField("module", "ourairports")
)

const (
	OurairportsAirportsURL  = "https://davidmegginson.github.io/ourairports-data/airports.csv"
	OurairportsCountriesURL = "https://davidmegginson.github.io/ourairports-data/countries.csv"
)

const (
	ObjectTypeAirport pubsub.ObjectType = 300 + iota
)

func New(cfg *Config) *Provider {
	return &Provider{
		Provider:  pubsub.NewProvider(),
		cfg:       cfg,
		stop:      make(chan bool),
		stopped:   false,
		airports:  make(map[string]Airport),
		countries: make(map[string]Country),
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

// Airports returns the reference airports on the given continents (all of
// them when continents is empty), sorted by code.
func (p *Provider) Airports(continents []string) []Airport {
	filter := set.FromList(continents)

	p.dataLock.RLock()
	res := make([]Airport, 0, len(p.airports))
	for _, a := range p.airports {
		if len(continents) > 0 && !filter.Has(a.Continent) {
			continue
		}
		res = append(res, a)
	}
	p.dataLock.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res
}

func (p *Provider) Airport(code string) (Airport, bool) {
	p.dataLock.RLock()
	defer p.dataLock.RUnlock()
	a, found := p.airports[code]
	return a, found
}

func (p *Provider) loop() {
	defer p.Dispose()

	p.SetInitialNotifier(func(sub pubsub.Subscription) {
		// make notifier async to avoid reaching chan buffer limit
		go func() {
			p.dataLock.RLock()
			defer p.dataLock.RUnlock()
			for _, arpt := range p.airports {
				sub.Send(pubsub.Update{UType: pubsub.UpdateTypeSet, OType: ObjectTypeAirport, Obj: arpt})
			}
			sub.Fin()
		}()
	})

	// countries go first so that airport names resolve on the first pass
	cchan, cstop, err := routemap.Open(p.cfg.CountriesURL, p.cfg.Poll, p.cfg.Boot)
	if err != nil {
		log.WithError(err).Error("error fetching countries, country names fall back to iso codes")
	} else {
		defer cstop()
		p.ParseCountries(<-cchan)
	}

	achan, astop, err := routemap.Open(p.cfg.AirportsURL, p.cfg.Poll, p.cfg.Boot)
	if err != nil {
		log.WithError(err).Error("error fetching airports, nearest-airport lookups will fail")
		p.SetDataReady(true)
		<-p.stop
		p.stopped = true
		return
	}
	defer astop()

loop:
	for {
		select {
		case raw := <-cchan:
			p.ParseCountries(raw)
		case raw := <-achan:
			log.Debug("got update from ourairports poller")
			if err := p.ParseAirports(raw); err != nil {
				log.WithError(err).Error("error parsing airports")
			}
		case <-p.stop:
			p.stopped = true
			break loop
		}
	}
}

func (p *Provider) ParseCountries(raw []byte) {
	countries, err := parseCountries(raw)
	if err != nil {
		log.WithError(err).Error("error parsing countries")
		return
	}
	p.dataLock.Lock()
	p.countries = countries
	p.dataLock.Unlock()
	log.WithField("countries", len(countries)).Info("countries loaded")
}

func (p *Provider) ParseAirports(raw []byte) error {
	p.dataLock.RLock()
	countries := p.countries
	p.dataLock.RUnlock()

	airports, err := parseAirports(raw, countries)
	if err != nil {
		return err
	}

	arptSet, arptDel := mapupdate.Update[Airport, mapupdate.Comparable[Airport]](p.airports, airports, &p.dataLock)
	log.WithFields(logrus.Fields{
		"airports": len(airports),
		"set":      len(arptSet),
		"delete":   len(arptDel),
	}).Info("airports loaded")

	for _, update := range pubsub.MakeUpdates(arptSet, arptDel, ObjectTypeAirport) {
		p.Notify(update)
	}
	p.Fin()
	p.SetDataReady(true)
	return nil
}
