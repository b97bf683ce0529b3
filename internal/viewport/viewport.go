// Package viewport defines the visible window onto the map and the
// conversions between screen pixels and world coordinates.
package viewport

import (
	"math"

	"github.com/paulmach/orb"
)

// Viewport is the visible part of the map. It is a value type: the limiter
// owns the current value and hands out copies.
//
// Screen coordinates have their origin in the top-left corner with y
// pointing down. World coordinates have y pointing up. Rotation is in
// degrees, clockwise, normalized to (-180, 180].
type Viewport struct {
	Center     orb.Point `json:"center" yaml:"center"`
	Resolution float64   `json:"resolution" yaml:"resolution"`
	Rotation   float64   `json:"rotation" yaml:"rotation"`
	Width      float64   `json:"width" yaml:"width"`
	Height     float64   `json:"height" yaml:"height"`
}

// HasSize reports whether the screen size is known.
func (v Viewport) HasSize() bool {
	return v.Width > 0 && v.Height > 0
}

// ScreenCenter returns the pixel position of the viewport center.
func (v Viewport) ScreenCenter() orb.Point {
	return orb.Point{v.Width / 2, v.Height / 2}
}

// WorldToScreen converts a world coordinate to a pixel position.
func (v Viewport) WorldToScreen(p orb.Point) orb.Point {
	dx := (p.X() - v.Center.X()) / v.Resolution
	dy := (v.Center.Y() - p.Y()) / v.Resolution
	if v.Rotation != 0 {
		sin, cos := sinCos(v.Rotation)
		dx, dy = dx*cos-dy*sin, dx*sin+dy*cos
	}
	c := v.ScreenCenter()
	return orb.Point{c.X() + dx, c.Y() + dy}
}

// ScreenToWorld converts a pixel position to a world coordinate.
func (v Viewport) ScreenToWorld(p orb.Point) orb.Point {
	c := v.ScreenCenter()
	dx := p.X() - c.X()
	dy := p.Y() - c.Y()
	if v.Rotation != 0 {
		sin, cos := sinCos(v.Rotation)
		dx, dy = dx*cos+dy*sin, -dx*sin+dy*cos
	}
	return orb.Point{v.Center.X() + dx*v.Resolution, v.Center.Y() - dy*v.Resolution}
}

// Extent returns the world bound covering the (possibly rotated) screen.
// An empty viewport yields a bound around the center.
func (v Viewport) Extent() orb.Bound {
	corners := []orb.Point{
		{0, 0},
		{v.Width, 0},
		{v.Width, v.Height},
		{0, v.Height},
	}
	b := orb.Bound{Min: v.Center, Max: v.Center}
	for _, c := range corners {
		b = b.Extend(v.ScreenToWorld(c))
	}
	return b
}

// NormalizeRotation maps any angle in degrees into (-180, 180].
func NormalizeRotation(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

func sinCos(deg float64) (float64, float64) {
	return math.Sincos(deg * math.Pi / 180)
}
