package gesture

import (
	"time"

	"github.com/joeblew999/plat-mapview/internal/touch"
	"github.com/joeblew999/plat-mapview/internal/velocity"
)

// Timing holds the tap thresholds of one pointer device.
type Timing struct {
	// TapMax is the longest press that still counts as a tap.
	TapMax time.Duration `yaml:"tapMax"`
	// LongTap is the shortest press that counts as a long tap.
	LongTap time.Duration `yaml:"longTap"`
	// DoubleTapDelay is how long a tap waits for a follow-up tap.
	DoubleTapDelay time.Duration `yaml:"doubleTapDelay"`
}

// Config tunes gesture recognition.
type Config struct {
	// UnSnapRotation is how far (degrees) a north-up map has to be twisted
	// before it starts rotating.
	UnSnapRotation float64 `yaml:"unSnapRotation"`
	// ReSnapRotation is how close (degrees) to north a rotated map has to
	// come before it snaps back to exactly 0.
	ReSnapRotation float64 `yaml:"reSnapRotation"`
	// TapSlop is the largest press-to-release travel (pixels) of a tap.
	TapSlop float64 `yaml:"tapSlop"`
	// FlingVelocity is the release speed (px/s, per axis) above which a
	// release is a fling.
	FlingVelocity float64 `yaml:"flingVelocity"`
	// SwipeVelocity is the release speed (px/s, per axis) above which a
	// release outside the tap slop is reported as a swipe. Zero disables
	// swipes.
	SwipeVelocity float64 `yaml:"swipeVelocity"`
	// FlingDuration caps the kinetic pan started by a fling.
	FlingDuration time.Duration `yaml:"flingDuration"`
	// UseDoubleTap delays single taps to detect double taps. When false
	// every tap is reported immediately as a single tap.
	UseDoubleTap bool `yaml:"useDoubleTap"`
	// TrackingWindow bounds the samples used for release velocity.
	TrackingWindow time.Duration `yaml:"trackingWindow"`
	// Timings per pointer device. Missing devices use the touch row.
	Timings map[touch.Device]Timing `yaml:"-"`
}

// DefaultConfig returns the stock thresholds. The tap values follow the
// Android view configuration.
func DefaultConfig() Config {
	return Config{
		UnSnapRotation: 30,
		ReSnapRotation: 5,
		TapSlop:        8,
		FlingVelocity:  200,
		SwipeVelocity:  100,
		FlingDuration:  time.Second,
		UseDoubleTap:   true,
		TrackingWindow: velocity.DefaultWindow,
		Timings:        DefaultTimings(),
	}
}

// DefaultTimings returns the per-device timing table.
func DefaultTimings() map[touch.Device]Timing {
	return map[touch.Device]Timing{
		touch.DeviceTouch: {
			TapMax:         500 * time.Millisecond,
			LongTap:        500 * time.Millisecond,
			DoubleTapDelay: 200 * time.Millisecond,
		},
		touch.DeviceMouse: {
			TapMax:         250 * time.Millisecond,
			LongTap:        500 * time.Millisecond,
			DoubleTapDelay: 125 * time.Millisecond,
		},
	}
}

// Timing returns the thresholds for a device.
func (c Config) Timing(d touch.Device) Timing {
	if t, ok := c.Timings[d]; ok {
		return t
	}
	if t, ok := c.Timings[touch.DeviceTouch]; ok {
		return t
	}
	return DefaultTimings()[touch.DeviceTouch]
}
