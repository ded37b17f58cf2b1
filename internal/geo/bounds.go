// Package geo computes map views and tile coverage for point sets.
package geo

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

// ErrEmptyBounds is returned when a view is requested for no points.
var ErrEmptyBounds = errors.New("geo: cannot compute bounds of an empty point set")

// View is a map center and zoom level.
type View struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
}

// zoomSteps maps the largest bounding-box side in degrees to a zoom level.
// Entries are ordered by extent; the first one that fits wins.
var zoomSteps = []struct {
	extent float64
	zoom   int
}{
	{0.01, 12},
	{0.5, 10},
	{2, 8},
	{5, 6},
}

// MinZoom is used for extents wider than every step.
const MinZoom = 4

// ZoomForExtent maps an extent in degrees to a zoom level.
// Smaller extents get higher zoom.
func ZoomForExtent(extent float64) int {
	for _, s := range zoomSteps {
		if extent <= s.extent {
			return s.zoom
		}
	}

	return MinZoom
}

// Extent returns the larger side of the bound in degrees.
func Extent(b orb.Bound) float64 {
	return math.Max(b.Top()-b.Bottom(), b.Right()-b.Left())
}

// Fit returns the view centered on the bounding box of points
// with a zoom level chosen from its extent.
func Fit(points []orb.Point) (View, error) {
	if len(points) == 0 {
		return View{}, ErrEmptyBounds
	}

	b := orb.MultiPoint(points).Bound()
	c := b.Center()

	return View{
		Latitude:  c.Lat(),
		Longitude: c.Lon(),
		Zoom:      ZoomForExtent(Extent(b)),
	}, nil
}
