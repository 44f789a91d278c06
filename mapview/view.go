package mapview

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/routemap/dataset"
	"github.com/vatsimnerd/routemap/flights"
	"github.com/vatsimnerd/util/set"
)

var (
	log = logrus.WithField("module", "mapview")

	ErrNotFound = fmt.Errorf("not found")
	ErrHidden   = fmt.Errorf("airport is hidden by the current filter")
)

// View is the state of one map page: airport markers, drawn route lines,
// filters, the selected path and live plane markers. A View is not safe for
// concurrent use.
type View struct {
	data *dataset.Dataset

	markers []*Marker
	byCode  map[string]*Marker

	lines    map[int]*Line
	nextLine int
	selected []SelectedRoute
	colors   *Colors

	filter Filter

	showPlanes bool
	flights    map[string]flights.ActiveFlight
	planes     map[string]*Plane

	info Info
}

// New builds a view with one marker per airport of ds and applies the empty
// filter.
func New(ds *dataset.Dataset) *View {
	if ds == nil {
		ds = dataset.Empty()
	}

	v := &View{
		data:     ds,
		markers:  make([]*Marker, 0, len(ds.Airports)),
		byCode:   make(map[string]*Marker, len(ds.Airports)),
		lines:    make(map[int]*Line),
		nextLine: 1,
		selected: make([]SelectedRoute, 0),
		colors:   NewColors(),
		flights:  make(map[string]flights.ActiveFlight),
		planes:   make(map[string]*Plane),
	}

	for _, a := range ds.Airports {
		m := &Marker{Airport: a, Radius: MinRadius, Visible: true}
		v.markers = append(v.markers, m)
		v.byCode[a.Code] = m
	}

	v.applyFilter()
	return v
}

func (v *View) Dataset() *dataset.Dataset {
	return v.data
}

func (v *View) Filter() Filter {
	return v.filter
}

// Markers returns copies of the visible markers in dataset order.
func (v *View) Markers() []Marker {
	res := make([]Marker, 0, len(v.markers))
	for _, m := range v.markers {
		if m.Visible {
			res = append(res, *m)
		}
	}
	return res
}

func (v *View) Marker(code string) (Marker, bool) {
	m, found := v.byCode[code]
	if !found {
		return Marker{}, false
	}
	return *m, true
}

// Lines returns copies of the drawn route lines ordered by id.
func (v *View) Lines() []Line {
	res := make([]Line, 0, len(v.lines))
	for _, l := range v.lines {
		res = append(res, *l)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (v *View) Line(id int) (Line, bool) {
	l, found := v.lines[id]
	if !found {
		return Line{}, false
	}
	return *l, true
}

func (v *View) Selected() []SelectedRoute {
	res := make([]SelectedRoute, len(v.selected))
	copy(res, v.selected)
	return res
}

// ToggleAirport draws the routes of an airport that passes the airline
// filter, or removes its lines when they are already drawn.
func (v *View) ToggleAirport(code string) error {
	m, found := v.byCode[code]
	if !found {
		return ErrNotFound
	}
	if !m.Visible {
		return ErrHidden
	}

	if m.Drawn() {
		v.removeLines(m)
		return nil
	}

	for _, route := range m.Airport.Routes {
		if v.filter.Airline != "" && route.Airline != v.filter.Airline {
			continue
		}
		l := &Line{
			ID:      v.nextLine,
			Airport: code,
			Route:   route,
			Color:   v.colors.Color(route.Airline),
		}
		v.nextLine++
		v.lines[l.ID] = l
		m.lines = append(m.lines, l.ID)
	}
	log.WithFields(logrus.Fields{"airport": code, "lines": len(m.lines)}).Trace("routes drawn")
	return nil
}

// ToggleRoute adds a drawn line to the selected path or removes it.
func (v *View) ToggleRoute(id int) error {
	l, found := v.lines[id]
	if !found {
		return ErrNotFound
	}

	if l.Selected {
		l.Selected = false
		v.unselect(id)
	} else {
		l.Selected = true
		v.selected = append(v.selected, SelectedRoute{Line: id, Route: l.Route})
	}
	return nil
}

// Reset removes every drawn line and clears the selected path.
func (v *View) Reset() {
	for _, m := range v.markers {
		m.lines = nil
	}
	v.lines = make(map[int]*Line)
	v.selected = v.selected[:0]
}

// Path is the breadcrumb of the selected routes.
func (v *View) Path() string {
	parts := make([]string, 0, len(v.selected)*2+1)
	for idx, item := range v.selected {
		if idx == 0 {
			parts = append(parts, item.Route.FromName)
		}
		parts = append(parts, item.Route.Airline, item.Route.ToName)
	}
	return strings.Join(parts, " => ")
}

// ResetVisible tells whether the reset control should be shown.
func (v *View) ResetVisible() bool {
	return len(v.selected) > 0
}

func (v *View) SetFilter(f Filter) {
	v.filter = f
	v.applyFilter()
}

func (v *View) SetAirline(airline string) {
	v.filter.Airline = airline
	v.applyFilter()
}

func (v *View) SetCountry(country string) {
	v.filter.Country = country
	v.applyFilter()
}

func (v *View) ResetAirline() {
	v.SetAirline("")
}

func (v *View) ResetCountry() {
	v.SetCountry("")
}

func (v *View) matchingRoutes(a dataset.Airport) int {
	if v.filter.Country != "" && a.CountryCode != v.filter.Country {
		return 0
	}
	if v.filter.Airline == "" {
		return len(a.Routes)
	}
	count := 0
	for _, r := range a.Routes {
		if r.Airline == v.filter.Airline {
			count++
		}
	}
	return count
}

func (v *View) applyFilter() {
	maxRoutes := 0
	for _, m := range v.markers {
		m.Count = v.matchingRoutes(m.Airport)
		if m.Count > maxRoutes {
			maxRoutes = m.Count
		}
	}
	if maxRoutes == 0 {
		maxRoutes = 1
	}

	for _, m := range v.markers {
		m.Radius = MinRadius + float64(m.Count)/float64(maxRoutes)*(MaxRadius-MinRadius)
		m.Visible = m.Count > 0
		if !m.Visible {
			v.removeLines(m)
		}
	}

	v.clearSelection()

	if v.showPlanes {
		v.refreshPlanes()
	}
}

func (v *View) removeLines(m *Marker) {
	for _, id := range m.lines {
		delete(v.lines, id)
		v.unselect(id)
	}
	m.lines = nil
}

func (v *View) unselect(id int) {
	for idx, item := range v.selected {
		if item.Line == id {
			v.selected = append(v.selected[:idx], v.selected[idx+1:]...)
			return
		}
	}
}

func (v *View) clearSelection() {
	for _, item := range v.selected {
		if l, found := v.lines[item.Line]; found {
			l.Selected = false
		}
	}
	v.selected = v.selected[:0]
}

// ShowPlanes tells whether live plane markers are enabled.
func (v *View) ShowPlanes() bool {
	return v.showPlanes
}

// SetShowPlanes enables plane markers seeded from snapshot, or disables them
// and drops every plane marker.
func (v *View) SetShowPlanes(show bool, snapshot map[string]flights.ActiveFlight) {
	v.showPlanes = show
	if !show {
		v.flights = make(map[string]flights.ActiveFlight)
		v.planes = make(map[string]*Plane)
		return
	}
	v.ApplySnapshot(snapshot)
}

// ApplySnapshot makes the plane markers match snapshot: aircraft present in
// it are upserted, markers of aircraft missing from it are removed.
func (v *View) ApplySnapshot(snapshot map[string]flights.ActiveFlight) {
	v.flights = make(map[string]flights.ActiveFlight, len(snapshot))
	for k, f := range snapshot {
		v.flights[k] = f
	}
	if v.showPlanes {
		v.refreshPlanes()
	}
}

// UpsertFlight applies a single changed aircraft and reports whether the
// plane markers changed.
func (v *View) UpsertFlight(f flights.ActiveFlight) bool {
	if !v.showPlanes {
		return false
	}
	v.flights[f.ICAO24] = f
	if v.planeMatches(f) {
		v.upsertPlane(f)
		return true
	}
	_, shown := v.planes[f.ICAO24]
	delete(v.planes, f.ICAO24)
	return shown
}

// RemoveFlight drops an aircraft that left the feed and reports whether it
// had a marker.
func (v *View) RemoveFlight(icao24 string) bool {
	delete(v.flights, icao24)
	_, shown := v.planes[icao24]
	delete(v.planes, icao24)
	return shown
}

func (v *View) planeMatches(f flights.ActiveFlight) bool {
	if v.filter.Airline == "" {
		return true
	}
	return f.Airline == v.data.AirlineCode(v.filter.Airline)
}

func (v *View) upsertPlane(f flights.ActiveFlight) {
	if p, found := v.planes[f.ICAO24]; found {
		p.Position = f.LastCoord
		p.Tooltip = f.Describe()
		return
	}
	v.planes[f.ICAO24] = &Plane{ICAO24: f.ICAO24, Position: f.LastCoord, Tooltip: f.Describe()}
}

func (v *View) refreshPlanes() {
	seen := set.New[string]()
	for icao24, f := range v.flights {
		if !v.planeMatches(f) {
			continue
		}
		seen.Add(icao24)
		v.upsertPlane(f)
	}
	for icao24 := range v.planes {
		if !seen.Has(icao24) {
			delete(v.planes, icao24)
		}
	}
}

// Planes returns copies of the plane markers ordered by ICAO24.
func (v *View) Planes() []Plane {
	res := make([]Plane, 0, len(v.planes))
	for _, p := range v.planes {
		res = append(res, *p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ICAO24 < res[j].ICAO24 })
	return res
}

func (v *View) SetInfo(info Info) {
	v.info = info
}

// Stats renders the status line.
func (v *View) Stats() string {
	visibleAirports := 0
	for _, m := range v.markers {
		if m.Visible {
			visibleAirports++
		}
	}
	totalAirports := v.info.ActiveAirports
	if totalAirports == 0 {
		totalAirports = len(v.data.Airports)
	}
	visiblePlanes := 0
	if v.showPlanes {
		visiblePlanes = len(v.planes)
	}

	return fmt.Sprintf("Airports: %d/%d | Planes: %d/%d | Routes: %d (last hr: %d)",
		visibleAirports, totalAirports,
		visiblePlanes, v.info.ActivePlanes,
		v.info.Routes, v.info.RecoveredLastHour,
	)
}
