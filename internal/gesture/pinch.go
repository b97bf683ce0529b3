package gesture

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrDegeneratePinch is returned for pinch geometry with fewer than two
// points.
var ErrDegeneratePinch = errors.New("gesture: pinch needs at least two points")

// PinchValues returns the centroid of points, the distance from the
// centroid to the first point and the angle in degrees of the line from
// the first to the second point.
func PinchValues(points []orb.Point) (center orb.Point, radius, angle float64, err error) {
	if len(points) < 2 {
		return orb.Point{}, 0, 0, ErrDegeneratePinch
	}
	var cx, cy float64
	for _, p := range points {
		cx += p.X()
		cy += p.Y()
	}
	center = orb.Point{cx / float64(len(points)), cy / float64(len(points))}
	radius = planar.Distance(center, points[0])
	angle = math.Atan2(points[1].Y()-points[0].Y(), points[1].X()-points[0].X()) * 180 / math.Pi
	return center, radius, angle, nil
}

// SnapRotation returns the rotation delta for a pinch given the
// accumulated unsnapped angle and the current viewport rotation.
//
// A north-up map stays put until |inner| reaches unSnap. A rotated map
// follows inner, and snaps back to exactly 0 once |inner| is within reSnap.
func SnapRotation(inner, rotation, unSnap, reSnap float64) float64 {
	switch {
	case rotation == 0 && math.Abs(inner) >= math.Abs(unSnap):
		return inner
	case rotation != 0 && math.Abs(inner) <= math.Abs(reSnap):
		return -rotation
	case rotation != 0:
		return inner - rotation
	}
	return 0
}

// pinchRatio is the resolution ratio for a radius change. Zero radii give
// the neutral ratio 1.
func pinchRatio(previous, current float64) float64 {
	if previous <= 0 || current <= 0 {
		return 1
	}
	r := previous / current
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 1
	}
	return r
}
