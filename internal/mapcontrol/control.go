// Package mapcontrol composes gesture recognition and viewport navigation
// into a map control that a host toolkit feeds with pointer input.
package mapcontrol

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapview/internal/gesture"
	"github.com/joeblew999/plat-mapview/internal/logging"
	"github.com/joeblew999/plat-mapview/internal/navigator"
	"github.com/joeblew999/plat-mapview/internal/viewport"
)

// Options configures a Control.
type Options struct {
	Gesture    gesture.Config
	Limits     navigator.Limits
	Navigation navigator.Options
	// Viewport is the initial viewport. A zero size is fine; the host sets
	// the size once it is laid out.
	Viewport viewport.Viewport
	// Clock drives animations. Defaults to time.Now.
	Clock func() time.Time
	// Scheduler runs double-tap timers on the control's thread.
	Scheduler gesture.Scheduler
}

// DefaultOptions returns stock gesture, limit and navigation settings
// around a whole-world viewport.
func DefaultOptions() Options {
	return Options{
		Gesture:    gesture.DefaultConfig(),
		Limits:     navigator.DefaultLimits(),
		Navigation: navigator.DefaultOptions(),
		Viewport:   viewport.Viewport{Resolution: navigator.LevelResolution(2)},
	}
}

// Control is one map control. All methods must be called from the same
// goroutine as the scheduler's callbacks (see Loop).
type Control struct {
	nav         *navigator.Navigator
	rec         *gesture.Recognizer
	initialized bool
	onInit      []func(viewport.Viewport)
}

// New creates a control.
func New(opts Options) *Control {
	nav := navigator.New(navigator.NewLimiter(opts.Limits, opts.Viewport), opts.Navigation, opts.Clock)
	c := &Control{
		nav: nav,
		rec: gesture.New(opts.Gesture, nav, opts.Scheduler),
	}
	c.initialized = nav.Viewport().HasSize()
	return c
}

// Navigator exposes programmatic navigation.
func (c *Control) Navigator() *navigator.Navigator { return c.nav }

// Viewport returns the current viewport.
func (c *Control) Viewport() viewport.Viewport { return c.nav.Viewport() }

// HandleInput feeds one raw pointer event.
func (c *Control) HandleInput(in gesture.Input) gesture.Outcome {
	return c.rec.Process(in)
}

// Handle registers an application handler for a gesture kind.
func (c *Control) Handle(k gesture.Kind, h gesture.Handler) { c.rec.Handle(k, h) }

// Observe registers fn to see every gesture event.
func (c *Control) Observe(fn func(gesture.Event)) { c.rec.Observe(fn) }

// OnViewportChanged registers fn to run after every viewport change. This
// is the repaint request for the renderer.
func (c *Control) OnViewportChanged(fn func(viewport.Viewport)) { c.nav.OnChange(fn) }

// OnViewportInitialized registers fn to run once, when the viewport first
// gets a non-zero size.
func (c *Control) OnViewportInitialized(fn func(viewport.Viewport)) {
	c.onInit = append(c.onInit, fn)
}

// SetHitTester installs the hit-test collaborator.
func (c *Control) SetHitTester(h gesture.HitTester) { c.rec.SetHitTester(h) }

// SetDataRefresher installs the data refresh collaborator.
func (c *Control) SetDataRefresher(d gesture.DataRefresher) { c.rec.SetDataRefresher(d) }

// SetLimits replaces the navigation limits.
func (c *Control) SetLimits(l navigator.Limits) { c.nav.SetLimits(l) }

// SetSize applies a new screen size. A real size change drops active
// touches, since their pixel locations no longer match the layout.
func (c *Control) SetSize(width, height float64) {
	v := c.nav.Viewport()
	if v.Width == width && v.Height == height {
		return
	}
	if len(c.rec.Touches()) > 0 {
		c.rec.Reset()
	}
	c.nav.SetSize(width, height)
	v = c.nav.Viewport()
	if !c.initialized && v.HasSize() {
		c.initialized = true
		logging.Logger().Debug("mapcontrol: viewport initialized", "width", v.Width, "height", v.Height)
		for _, fn := range c.onInit {
			fn(v)
		}
	}
}

// Initialized reports whether the viewport ever had a size.
func (c *Control) Initialized() bool { return c.initialized }

// Tick advances running animations. It reports whether the viewport
// changed and so needs a repaint.
func (c *Control) Tick() bool { return c.nav.UpdateAnimations() }

// Animating reports whether an animation is running.
func (c *Control) Animating() bool { return c.nav.Animating() }

// State returns the gesture recognizer state.
func (c *Control) State() gesture.State { return c.rec.State() }

// Mode returns the interaction mode.
func (c *Control) Mode() gesture.Mode { return c.rec.Mode() }

// Touches returns the active touch locations.
func (c *Control) Touches() []orb.Point { return c.rec.Touches() }

// Config returns the gesture configuration.
func (c *Control) Config() gesture.Config { return c.rec.Config() }
