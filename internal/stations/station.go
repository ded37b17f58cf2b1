// Package stations loads CNG station records and filters them by attribute.
package stations

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Station is a single CNG station record.
type Station struct {
	Name  string
	State string
	LGA   string
	Point orb.Point
}

// Attribute identifies a filterable station property.
type Attribute int

// Filterable attributes in the order filters are applied.
const (
	State Attribute = iota
	LGA
	Name

	attributeCount
)

// Attributes lists every attribute in filter order.
var Attributes = [attributeCount]Attribute{State, LGA, Name}

var attributeNames = [attributeCount]string{"State", "LGA", "Name"}

func (a Attribute) String() string {
	if a < 0 || a >= attributeCount {
		return fmt.Sprintf("Attribute(%d)", int(a))
	}

	return attributeNames[a]
}

// ParseAttribute resolves an attribute by its property name, ignoring case.
func ParseAttribute(s string) (Attribute, error) {
	for i, n := range attributeNames {
		if strings.EqualFold(n, s) {
			return Attribute(i), nil
		}
	}

	return 0, fmt.Errorf("unknown attribute %q", s)
}

// Of returns the attribute value of the station.
func (a Attribute) Of(s Station) string {
	switch a {
	case State:
		return s.State
	case LGA:
		return s.LGA
	case Name:
		return s.Name
	}

	return ""
}

// Feature converts the station to a GeoJSON point feature.
func (s Station) Feature() *geojson.Feature {
	f := geojson.NewFeature(s.Point)
	f.Properties = geojson.Properties{
		"Name":      s.Name,
		"State":     s.State,
		"LGA":       s.LGA,
		"latitude":  s.Point.Lat(),
		"longitude": s.Point.Lon(),
	}

	return f
}

// FeatureCollection converts stations to a GeoJSON feature collection.
func FeatureCollection(stations []Station) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(stations))
	for _, s := range stations {
		fc.Append(s.Feature())
	}

	return fc
}

// Points returns the station positions.
func Points(stations []Station) []orb.Point {
	pts := make([]orb.Point, len(stations))
	for i, s := range stations {
		pts[i] = s.Point
	}

	return pts
}
