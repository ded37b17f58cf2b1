package stations

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Collection is an immutable set of stations loaded from one source.
type Collection struct {
	source   string
	stations []Station
}

// NewCollection wraps stations; the slice is copied.
func NewCollection(source string, stations []Station) *Collection {
	s := make([]Station, len(stations))
	copy(s, stations)

	return &Collection{source: source, stations: s}
}

// Source returns where the collection was loaded from.
func (c *Collection) Source() string { return c.source }

// Len returns the number of stations.
func (c *Collection) Len() int { return len(c.stations) }

// Stations returns a copy of all stations.
func (c *Collection) Stations() []Station {
	out := make([]Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// Bound returns the bounding box of every station.
func (c *Collection) Bound() orb.Bound {
	return orb.MultiPoint(Points(c.stations)).Bound()
}

// FeatureCollection returns the whole collection as GeoJSON.
func (c *Collection) FeatureCollection() *geojson.FeatureCollection {
	return FeatureCollection(c.stations)
}
