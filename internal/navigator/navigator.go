// Package navigator applies gesture deltas and programmatic navigation to
// the map viewport, and runs the frame-driven animations (kinetic fling,
// animated zoom and fly-to).
package navigator

import (
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapview/internal/logging"
	"github.com/joeblew999/plat-mapview/internal/viewport"
)

const (
	// minFlingSpeed below which a release does not start a kinetic pan (px/s).
	minFlingSpeed = 100
	// minAnimation is roughly one frame; shorter animations are skipped.
	minAnimation = 16 * time.Millisecond
)

// Options tune programmatic navigation.
type Options struct {
	// AnimationDuration of zoom, rotate and fly-to moves. Zero applies
	// them immediately.
	AnimationDuration time.Duration `yaml:"animationDuration"`
	// ZoomFactor is the resolution ratio of one ZoomIn/ZoomOut step.
	ZoomFactor float64 `yaml:"zoomFactor"`
}

// DefaultOptions returns the navigation defaults.
func DefaultOptions() Options {
	return Options{
		AnimationDuration: 300 * time.Millisecond,
		ZoomFactor:        2,
	}
}

// Navigator mutates the viewport through a Limiter and notifies listeners
// after every change. It runs at most one animation at a time. It is not
// safe for concurrent use; callers serialize access on one goroutine.
type Navigator struct {
	limiter   *Limiter
	opts      Options
	now       func() time.Time
	anim      *animation
	listeners []func(viewport.Viewport)
}

// New creates a navigator. A nil clock uses time.Now.
func New(limiter *Limiter, opts Options, now func() time.Time) *Navigator {
	if now == nil {
		now = time.Now
	}
	if opts.ZoomFactor <= 1 {
		opts.ZoomFactor = DefaultOptions().ZoomFactor
	}
	return &Navigator{limiter: limiter, opts: opts, now: now}
}

// OnChange registers a listener invoked with the new viewport after each
// change.
func (n *Navigator) OnChange(fn func(viewport.Viewport)) {
	n.listeners = append(n.listeners, fn)
}

// Viewport returns the current viewport.
func (n *Navigator) Viewport() viewport.Viewport {
	return n.limiter.Viewport()
}

// Limits returns the active limits.
func (n *Navigator) Limits() Limits {
	return n.limiter.Limits()
}

// SetLimits replaces the limits.
func (n *Navigator) SetLimits(l Limits) {
	n.notify(n.limiter.SetLimits(l))
}

// SetSize updates the screen size.
func (n *Navigator) SetSize(width, height float64) {
	n.notify(n.limiter.SetSize(width, height))
}

// PanBy moves the content by a pixel delta.
func (n *Navigator) PanBy(delta orb.Point) bool {
	return n.notify(n.limiter.PanBy(delta))
}

// ScaleBy scales the resolution about a screen point.
func (n *Navigator) ScaleBy(ratio float64, about orb.Point) bool {
	return n.notify(n.limiter.ScaleBy(ratio, about))
}

// RotateBy rotates about a screen point.
func (n *Navigator) RotateBy(delta float64, about orb.Point) bool {
	return n.notify(n.limiter.RotateBy(delta, about))
}

// Transform applies one pinch step, see Limiter.Transform.
func (n *Navigator) Transform(center, previous orb.Point, ratio, rotationDelta float64) bool {
	return n.notify(n.limiter.Transform(center, previous, ratio, rotationDelta))
}

// ZoomIn zooms one step in, keeping the world point under p in place.
func (n *Navigator) ZoomIn(p orb.Point) {
	n.zoomAbout(n.Viewport().Resolution/n.opts.ZoomFactor, p)
}

// ZoomOut zooms one step out, keeping the world point under p in place.
func (n *Navigator) ZoomOut(p orb.Point) {
	n.zoomAbout(n.Viewport().Resolution*n.opts.ZoomFactor, p)
}

// ZoomTo changes the resolution about the screen center.
func (n *Navigator) ZoomTo(resolution float64) {
	n.zoomAbout(resolution, n.Viewport().ScreenCenter())
}

// ZoomToLevel zooms to a web-mercator zoom level.
func (n *Navigator) ZoomToLevel(level float64) {
	n.ZoomTo(LevelResolution(level))
}

// RotateTo rotates to an absolute angle.
func (n *Navigator) RotateTo(degrees float64) {
	v := n.Viewport()
	n.animateTo(v.Center, v.Resolution, degrees)
}

// CenterOn moves the center to a world point.
func (n *Navigator) CenterOn(world orb.Point) {
	v := n.Viewport()
	n.animateTo(world, v.Resolution, v.Rotation)
}

// CenterOnLonLat moves the center to a WGS84 position, projected to web
// mercator.
func (n *Navigator) CenterOnLonLat(lon, lat float64) {
	n.CenterOn(LonLatToMercator(lon, lat))
}

// NavigateTo moves to a world point and resolution.
func (n *Navigator) NavigateTo(world orb.Point, resolution float64) {
	n.animateTo(world, resolution, n.Viewport().Rotation)
}

// NavigateToLevel moves to a world point and web-mercator zoom level.
func (n *Navigator) NavigateToLevel(world orb.Point, level float64) {
	n.NavigateTo(world, LevelResolution(level))
}

// FlingWith starts a kinetic pan from a release velocity in px/s. The pan
// lasts |v|/10 milliseconds capped at maxDuration, and its speed decays
// linearly to zero.
func (n *Navigator) FlingWith(vx, vy float64, maxDuration time.Duration) {
	if n.Limits().PanLock || !finite(vx, vy) {
		return
	}
	speed := math.Hypot(vx, vy)
	if speed < minFlingSpeed {
		return
	}
	d := time.Duration(speed / 10 * float64(time.Millisecond))
	if d > maxDuration {
		d = maxDuration
	}
	if d < minAnimation {
		return
	}
	n.StopRunningAnimation()

	secs := d.Seconds()
	// Displacement at progress t: v*T*(t - t²/2), i.e. linearly decaying speed.
	displacement := func(t float64) orb.Point {
		f := secs * (t - t*t/2)
		return orb.Point{vx * f, vy * f}
	}
	n.start(&animation{
		duration: d,
		easing:   linear,
		step: func(prev, cur float64) {
			a, b := displacement(prev), displacement(cur)
			n.limiter.PanBy(orb.Point{b.X() - a.X(), b.Y() - a.Y()})
		},
	})
	logging.Logger().Debug("fling started", "vx", vx, "vy", vy, "duration", d)
}

// StopRunningAnimation cancels the running animation, leaving the viewport
// where the last frame put it. Calling it without an animation is a no-op.
func (n *Navigator) StopRunningAnimation() {
	if n.anim == nil {
		return
	}
	n.anim = nil
	logging.Logger().Debug("animation stopped")
}

// Animating reports whether an animation is running.
func (n *Navigator) Animating() bool {
	return n.anim != nil
}

// UpdateAnimations advances the running animation to the current clock
// time. It reports whether the viewport changed.
func (n *Navigator) UpdateAnimations() bool {
	a := n.anim
	if a == nil {
		return false
	}
	t := 1.0
	if a.duration > 0 {
		t = float64(n.now().Sub(a.started)) / float64(a.duration)
	}
	t = math.Max(0, math.Min(1, t))

	before := n.limiter.Viewport()
	cur := a.easing(t)
	a.step(a.progress, cur)
	a.progress = cur
	if t >= 1 && n.anim == a {
		n.anim = nil
	}
	return n.notify(n.limiter.Viewport() != before)
}

func (n *Navigator) zoomAbout(resolution float64, p orb.Point) {
	if n.Limits().ZoomLock || resolution <= 0 || !finite(resolution) {
		return
	}
	from := n.Viewport()
	target := n.Limits().clampResolution(resolution)
	if n.Limits().PanLock {
		p = from.ScreenCenter()
	}
	world := from.ScreenToWorld(p)
	n.StopRunningAnimation()
	n.run(func(prev, t float64) {
		v := n.limiter.Viewport()
		v.Resolution = interpolateResolution(from.Resolution, target, t)
		n.limiter.MoveTo(anchor(v, p, world), v.Resolution, v.Rotation)
	})
}

func (n *Navigator) animateTo(center orb.Point, resolution, rotation float64) {
	from := n.Viewport()
	turn := viewport.NormalizeRotation(rotation - from.Rotation)
	n.StopRunningAnimation()
	n.run(func(prev, t float64) {
		c := center
		if t < 1 {
			c = orb.Point{
				from.Center.X() + (center.X()-from.Center.X())*t,
				from.Center.Y() + (center.Y()-from.Center.Y())*t,
			}
		}
		n.limiter.MoveTo(c, interpolateResolution(from.Resolution, resolution, t), from.Rotation+turn*t)
	})
}

// run applies step immediately when animations are disabled, otherwise
// starts an eased animation.
func (n *Navigator) run(step func(prev, t float64)) {
	if n.opts.AnimationDuration <= 0 {
		before := n.limiter.Viewport()
		step(0, 1)
		n.notify(n.limiter.Viewport() != before)
		return
	}
	n.start(&animation{duration: n.opts.AnimationDuration, easing: easeInOut, step: step})
}

func (n *Navigator) start(a *animation) {
	a.started = n.now()
	n.anim = a
}

func (n *Navigator) notify(changed bool) bool {
	if !changed {
		return false
	}
	v := n.limiter.Viewport()
	for _, fn := range n.listeners {
		fn(v)
	}
	return true
}

type animation struct {
	started  time.Time
	duration time.Duration
	easing   func(float64) float64
	progress float64
	// step moves the viewport from eased progress prev to cur.
	step func(prev, cur float64)
}

func linear(t float64) float64 { return t }

func easeInOut(t float64) float64 {
	return t * t * (3 - 2*t)
}

// interpolateResolution interpolates in log space so zoom speed looks
// uniform.
func interpolateResolution(from, to, t float64) float64 {
	if t >= 1 {
		return to
	}
	if from <= 0 || to <= 0 {
		return from + (to-from)*t
	}
	return from * math.Pow(to/from, t)
}
