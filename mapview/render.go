package mapview

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	KindAirport = "airport"
	KindRoute   = "route"
	KindPlane   = "plane"

	markerColor = "black"
	markerFill  = "#3388ff"
	routesPane  = "routes"
)

// Render draws the view as a GeoJSON feature collection: visible airport
// markers, drawn route lines and plane markers, in that order.
func Render(v *View) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, m := range v.Markers() {
		a := m.Airport
		f := geojson.NewFeature(a.Position().Point())
		f.ID = a.Code
		f.Properties["kind"] = KindAirport
		f.Properties["code"] = a.Code
		f.Properties["routes"] = m.Count
		f.Properties["radius"] = m.Radius
		f.Properties["color"] = markerColor
		f.Properties["fill_color"] = markerFill
		f.Properties["drawn"] = m.Drawn()
		f.Properties["tooltip"] = fmt.Sprintf("%s (%s)", a.Name, a.Code)
		fc.Append(f)
	}

	for _, l := range v.Lines() {
		r := l.Route
		f := geojson.NewFeature(orb.LineString{r.From.Point(), r.To.Point()})
		f.ID = l.ID
		f.Properties["kind"] = KindRoute
		f.Properties["airport"] = l.Airport
		f.Properties["airline"] = r.Airline
		f.Properties["color"] = l.CurrentColor()
		f.Properties["selected"] = l.Selected
		f.Properties["pane"] = routesPane
		f.Properties["tooltip"] = fmt.Sprintf("%s - %s - %s", r.FromName, r.Airline, r.ToName)
		fc.Append(f)
	}

	for _, p := range v.Planes() {
		f := geojson.NewFeature(p.Position.Point())
		f.ID = p.ICAO24
		f.Properties["kind"] = KindPlane
		f.Properties["icao24"] = p.ICAO24
		f.Properties["tooltip"] = p.Tooltip
		fc.Append(f)
	}

	return fc
}
