// Package velocity estimates release velocities of touch points.
package velocity

import (
	"time"

	"github.com/paulmach/orb"
)

// DefaultWindow is how long samples are retained per touch id.
const DefaultWindow = 100 * time.Millisecond

type sample struct {
	location orb.Point
	at       time.Time
}

// Tracker keeps a rolling, time-bounded window of samples per touch id.
// It is not safe for concurrent use.
type Tracker struct {
	window  time.Duration
	samples map[int64][]sample
}

// NewTracker returns a tracker that keeps samples younger than window.
// A non-positive window selects DefaultWindow.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		window:  window,
		samples: make(map[int64][]sample),
	}
}

// Window returns the retention window.
func (t *Tracker) Window() time.Duration {
	return t.window
}

// AddSample records the location of an in-contact touch.
func (t *Tracker) AddSample(id int64, location orb.Point, at time.Time) {
	s := append(t.samples[id], sample{location: location, at: at})
	t.samples[id] = prune(s, at.Add(-t.window))
}

// Velocity returns the velocity in pixels per second between the earliest
// and latest sample of id inside [now-window, now]. Fewer than two samples
// or zero elapsed time yield (0, 0).
func (t *Tracker) Velocity(id int64, now time.Time) (vx, vy float64) {
	s := prune(t.samples[id], now.Add(-t.window))
	if len(s) < 2 {
		return 0, 0
	}
	first, last := s[0], s[len(s)-1]
	elapsed := last.at.Sub(first.at)
	if elapsed <= 0 {
		return 0, 0
	}
	perSecond := float64(time.Second) / float64(elapsed)
	vx = (last.location.X() - first.location.X()) * perSecond
	vy = (last.location.Y() - first.location.Y()) * perSecond
	return vx, vy
}

// RemoveID drops all samples of one touch.
func (t *Tracker) RemoveID(id int64) {
	delete(t.samples, id)
}

// Clear drops every sample.
func (t *Tracker) Clear() {
	clear(t.samples)
}

// Len returns the number of retained samples for id.
func (t *Tracker) Len(id int64) int {
	return len(t.samples[id])
}

// prune drops samples older than cutoff. Samples arrive in time order.
func prune(s []sample, cutoff time.Time) []sample {
	i := 0
	for i < len(s) && s[i].at.Before(cutoff) {
		i++
	}
	return s[i:]
}
