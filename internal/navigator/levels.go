package navigator

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	// tileSize is the pixel width of a web-mercator tile.
	tileSize = 256
	// earthCircumference of the spherical mercator sphere, in meters.
	earthCircumference = 2 * math.Pi * 6378137

	// MaxLevel is the deepest zoom level in the default limits.
	MaxLevel = 24
)

// LevelResolution returns the web-mercator resolution of a zoom level.
// Fractional levels are allowed.
func LevelResolution(level float64) float64 {
	return earthCircumference / tileSize / math.Pow(2, level)
}

// ResolutionLevel is the inverse of LevelResolution.
func ResolutionLevel(resolution float64) float64 {
	if resolution <= 0 {
		return 0
	}
	return math.Log2(earthCircumference / tileSize / resolution)
}

// LonLatToMercator projects a WGS84 position to web mercator meters.
func LonLatToMercator(lon, lat float64) orb.Point {
	return project.Point(orb.Point{lon, lat}, project.WGS84.ToMercator)
}

// MercatorToLonLat projects web mercator meters back to WGS84.
func MercatorToLonLat(p orb.Point) orb.Point {
	return project.Point(p, project.Mercator.ToWGS84)
}
