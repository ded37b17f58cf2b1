package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxLat is the latitude limit of the web mercator tile grid.
const MaxLat = 85.05112878

// MaxZoom is the deepest zoom level tiles are enumerated for.
const MaxZoom = 22

// CoverTiles lists every tile intersecting the bound for zoom levels
// minZoom through maxZoom inclusive.
func CoverTiles(b orb.Bound, minZoom, maxZoom int) []maptile.Tile {
	if minZoom < 0 {
		minZoom = 0
	}
	maxZoom = min(maxZoom, MaxZoom)
	if maxZoom < minZoom {
		return nil
	}

	top := clampLat(b.Top())
	bottom := clampLat(b.Bottom())

	var tiles []maptile.Tile
	for z := minZoom; z <= maxZoom; z++ {
		zoom := maptile.Zoom(z)
		nw := maptile.At(orb.Point{b.Left(), top}, zoom)
		se := maptile.At(orb.Point{b.Right(), bottom}, zoom)
		last := uint32(1)<<uint32(z) - 1

		for x := nw.X; x <= min(se.X, last); x++ {
			for y := nw.Y; y <= min(se.Y, last); y++ {
				tiles = append(tiles, maptile.New(x, y, zoom))
			}
		}
	}

	return tiles
}

func clampLat(lat float64) float64 {
	if lat > MaxLat {
		return MaxLat
	}
	if lat < -MaxLat {
		return -MaxLat
	}

	return lat
}
