package navigator

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapview/internal/viewport"
)

// Limits constrain every change made to the viewport.
type Limits struct {
	MinResolution float64    `json:"minResolution" yaml:"minResolution" doc:"Smallest allowed resolution (most zoomed in)"`
	MaxResolution float64    `json:"maxResolution" yaml:"maxResolution" doc:"Largest allowed resolution (most zoomed out)"`
	PanLock       bool       `json:"panLock" yaml:"panLock" doc:"Reject center changes"`
	ZoomLock      bool       `json:"zoomLock" yaml:"zoomLock" doc:"Reject resolution changes"`
	RotationLock  bool       `json:"rotationLock" yaml:"rotationLock" doc:"Reject rotation changes"`
	PanExtent     *orb.Bound `json:"panExtent,omitempty" yaml:"panExtent,omitempty" doc:"World bound the center is kept inside"`
}

// DefaultLimits spans web-mercator zoom levels 0 through 24.
func DefaultLimits() Limits {
	return Limits{
		MinResolution: LevelResolution(MaxLevel),
		MaxResolution: LevelResolution(0),
	}
}

func (l Limits) clampResolution(r float64) float64 {
	if l.MinResolution > 0 && r < l.MinResolution {
		r = l.MinResolution
	}
	if l.MaxResolution > 0 && r > l.MaxResolution {
		r = l.MaxResolution
	}
	return r
}

func (l Limits) clampCenter(c orb.Point) orb.Point {
	if l.PanExtent == nil {
		return c
	}
	b := *l.PanExtent
	return orb.Point{
		math.Min(math.Max(c.X(), b.Min.X()), b.Max.X()),
		math.Min(math.Max(c.Y(), b.Min.Y()), b.Max.Y()),
	}
}

// Limiter owns the current viewport and applies changes to it subject to
// Limits. Every method is a no-op when the matching lock is set, and the
// resolution and rotation it commits are always clamped and normalized.
type Limiter struct {
	limits Limits
	vp     viewport.Viewport
}

// NewLimiter creates a limiter starting at initial (clamped).
func NewLimiter(limits Limits, initial viewport.Viewport) *Limiter {
	l := &Limiter{limits: limits}
	l.vp = l.constrain(initial)
	return l
}

// Viewport returns a copy of the current viewport.
func (l *Limiter) Viewport() viewport.Viewport {
	return l.vp
}

// Limits returns the active limits.
func (l *Limiter) Limits() Limits {
	return l.limits
}

// SetLimits replaces the limits and re-clamps the viewport.
func (l *Limiter) SetLimits(limits Limits) bool {
	l.limits = limits
	return l.commit(l.constrain(l.vp))
}

// SetSize changes the screen size, keeping the world center.
func (l *Limiter) SetSize(width, height float64) bool {
	v := l.vp
	v.Width = math.Max(width, 0)
	v.Height = math.Max(height, 0)
	return l.commit(v)
}

// SetViewport replaces the viewport, ignoring locks but not bounds.
func (l *Limiter) SetViewport(v viewport.Viewport) bool {
	return l.commit(l.constrain(v))
}

// PanBy moves the map content by a pixel delta.
func (l *Limiter) PanBy(delta orb.Point) bool {
	if l.limits.PanLock || (delta.X() == 0 && delta.Y() == 0) || !finite(delta.X(), delta.Y()) {
		return false
	}
	v := l.vp
	sc := v.ScreenCenter()
	from := v.ScreenToWorld(sc)
	to := v.ScreenToWorld(orb.Point{sc.X() + delta.X(), sc.Y() + delta.Y()})
	v.Center = l.limits.clampCenter(orb.Point{
		v.Center.X() + from.X() - to.X(),
		v.Center.Y() + from.Y() - to.Y(),
	})
	return l.commit(v)
}

// ScaleBy multiplies the resolution by ratio (ratio < 1 zooms in) keeping
// the world point under about fixed on screen.
func (l *Limiter) ScaleBy(ratio float64, about orb.Point) bool {
	if l.limits.ZoomLock || !validRatio(ratio) {
		return false
	}
	v := l.vp
	pivot, world := l.pivot(about)
	v.Resolution = l.limits.clampResolution(v.Resolution * ratio)
	if !l.limits.PanLock {
		v.Center = l.limits.clampCenter(anchor(v, pivot, world))
	}
	return l.commit(v)
}

// RotateBy rotates the map by delta degrees about a screen point.
func (l *Limiter) RotateBy(delta float64, about orb.Point) bool {
	if l.limits.RotationLock || delta == 0 || !finite(delta) {
		return false
	}
	v := l.vp
	pivot, world := l.pivot(about)
	v.Rotation = viewport.NormalizeRotation(v.Rotation + delta)
	if !l.limits.PanLock {
		v.Center = l.limits.clampCenter(anchor(v, pivot, world))
	}
	return l.commit(v)
}

// Transform applies one pinch step: the world point that was under
// previous ends up under center, after scaling the resolution by ratio and
// rotating by rotationDelta. Each component honors its own lock; with pan
// locked the center does not move at all.
func (l *Limiter) Transform(center, previous orb.Point, ratio, rotationDelta float64) bool {
	v := l.vp
	world := v.ScreenToWorld(previous)
	if !l.limits.ZoomLock && validRatio(ratio) {
		v.Resolution = l.limits.clampResolution(v.Resolution * ratio)
	}
	if !l.limits.RotationLock && finite(rotationDelta) {
		v.Rotation = viewport.NormalizeRotation(v.Rotation + rotationDelta)
	}
	if !l.limits.PanLock && finite(center.X(), center.Y()) {
		v.Center = l.limits.clampCenter(anchor(v, center, world))
	}
	return l.commit(v)
}

// MoveTo sets absolute values. Locked components keep their value.
func (l *Limiter) MoveTo(center orb.Point, resolution, rotation float64) bool {
	v := l.vp
	if !l.limits.PanLock && finite(center.X(), center.Y()) {
		v.Center = l.limits.clampCenter(center)
	}
	if !l.limits.ZoomLock && resolution > 0 && finite(resolution) {
		v.Resolution = l.limits.clampResolution(resolution)
	}
	if !l.limits.RotationLock && finite(rotation) {
		v.Rotation = viewport.NormalizeRotation(rotation)
	}
	return l.commit(v)
}

func (l *Limiter) pivot(about orb.Point) (orb.Point, orb.Point) {
	if l.limits.PanLock || !finite(about.X(), about.Y()) {
		about = l.vp.ScreenCenter()
	}
	return about, l.vp.ScreenToWorld(about)
}

func (l *Limiter) constrain(v viewport.Viewport) viewport.Viewport {
	if v.Resolution <= 0 || !finite(v.Resolution) {
		v.Resolution = l.limits.MaxResolution
		if v.Resolution <= 0 {
			v.Resolution = 1
		}
	}
	v.Resolution = l.limits.clampResolution(v.Resolution)
	v.Rotation = viewport.NormalizeRotation(v.Rotation)
	v.Center = l.limits.clampCenter(v.Center)
	v.Width = math.Max(v.Width, 0)
	v.Height = math.Max(v.Height, 0)
	return v
}

func (l *Limiter) commit(v viewport.Viewport) bool {
	if v == l.vp {
		return false
	}
	l.vp = v
	return true
}

// anchor returns the center that puts world under the screen point p for
// the resolution and rotation of v.
func anchor(v viewport.Viewport, p, world orb.Point) orb.Point {
	v.Center = orb.Point{0, 0}
	off := v.ScreenToWorld(p)
	return orb.Point{world.X() - off.X(), world.Y() - off.Y()}
}

func validRatio(r float64) bool {
	return r > 0 && finite(r)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
