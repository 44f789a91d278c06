package geoindex

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/quadtree"
	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/ourairports"
)

const (
	// MaxDistance is the radius in meters within which a position is
	// attributed to an airport.
	MaxDistance = 30_000.0

	candidates = 8
)

var (
	log = logrus.WithField("module", "geoindex")

	world = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}
)

type entry struct {
	airport ourairports.Airport
	pos     orb.Point
}

func (e *entry) Point() orb.Point {
	return e.pos
}

// Index answers nearest-airport queries. It is immutable once built and safe
// for concurrent use.
type Index struct {
	tree *quadtree.Quadtree
	size int
}

func New(airports []ourairports.Airport) *Index {
	idx := &Index{tree: quadtree.New(world)}
	for _, a := range airports {
		e := &entry{airport: a, pos: orb.Point{a.Longitude, a.Latitude}}
		if err := idx.tree.Add(e); err != nil {
			log.WithError(err).WithField("airport", a.Code).Debug("airport outside of index bounds")
			continue
		}
		idx.size++
	}
	return idx
}

func (idx *Index) Len() int {
	return idx.size
}

// Nearest finds the closest airport to c by great-circle distance, provided it
// lies within MaxDistance.
func (idx *Index) Nearest(c dataset.Coord) (ourairports.Airport, bool) {
	if idx == nil || idx.size == 0 || !c.Valid() {
		return ourairports.Airport{}, false
	}

	p := c.Point()
	// planar neighbours in degrees are only an approximation of the
	// great-circle order, so rank a few of them by haversine
	found := idx.tree.KNearest(nil, p, candidates)

	var best *entry
	bestDist := math.Inf(1)
	for _, ptr := range found {
		e := ptr.(*entry)
		d := geo.DistanceHaversine(p, e.pos)
		if d < bestDist {
			best = e
			bestDist = d
		}
	}

	if best == nil || bestDist > MaxDistance {
		return ourairports.Airport{}, false
	}
	return best.airport, true
}
