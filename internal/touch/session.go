// Package touch tracks the set of active pointer contacts.
package touch

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/plat-mapview/internal/velocity"
)

// ID identifies one finger or pointer contact for its lifetime.
type ID int64

// Device classifies the pointer that produced an event. It only selects
// timing thresholds.
type Device uint8

const (
	DeviceTouch Device = iota
	DeviceMouse
	DevicePen
)

func (d Device) String() string {
	switch d {
	case DeviceMouse:
		return "mouse"
	case DevicePen:
		return "pen"
	default:
		return "touch"
	}
}

// ParseDevice maps a device name to a Device. Unknown names are touch.
func ParseDevice(s string) Device {
	switch s {
	case "mouse":
		return DeviceMouse
	case "pen":
		return DevicePen
	default:
		return DeviceTouch
	}
}

// Point is an active contact.
type Point struct {
	ID        ID
	Location  orb.Point
	Time      time.Time // last update
	PressedAt time.Time
}

// Session holds the active contacts in insertion order and forwards moves
// to a velocity tracker. It is not safe for concurrent use.
type Session struct {
	order    []ID
	points   map[ID]*Point
	first    orb.Point
	hasFirst bool
	tracker  *velocity.Tracker
}

// NewSession creates an empty session feeding tracker. A nil tracker gets
// a default one.
func NewSession(tracker *velocity.Tracker) *Session {
	if tracker == nil {
		tracker = velocity.NewTracker(0)
	}
	return &Session{
		points:  make(map[ID]*Point),
		tracker: tracker,
	}
}

// Tracker returns the velocity tracker fed by this session.
func (s *Session) Tracker() *velocity.Tracker {
	return s.tracker
}

// Down registers a new contact. The first contact after all were released
// sets FirstLocation. It reports whether the session was empty before.
// A Down for an id that is already active replaces its record in place.
func (s *Session) Down(id ID, location orb.Point, at time.Time) bool {
	wasEmpty := len(s.order) == 0
	if wasEmpty {
		s.first = location
		s.hasFirst = true
	}
	if p, ok := s.points[id]; ok {
		*p = Point{ID: id, Location: location, Time: at, PressedAt: at}
		return wasEmpty
	}
	s.points[id] = &Point{ID: id, Location: location, Time: at, PressedAt: at}
	s.order = append(s.order, id)
	return wasEmpty
}

// Move updates a known contact. In-contact moves are forwarded to the
// velocity tracker. Unknown ids are ignored.
func (s *Session) Move(id ID, location orb.Point, at time.Time, inContact bool) bool {
	p, ok := s.points[id]
	if !ok {
		return false
	}
	p.Location = location
	p.Time = at
	if inContact {
		s.tracker.AddSample(int64(id), location, at)
	}
	return true
}

// Up removes and returns a contact.
func (s *Session) Up(id ID) (Point, bool) {
	p, ok := s.points[id]
	if !ok {
		return Point{}, false
	}
	delete(s.points, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return *p, true
}

// Cancel drops every contact at once.
func (s *Session) Cancel() {
	s.order = s.order[:0]
	clear(s.points)
	s.hasFirst = false
}

// Len returns the number of active contacts.
func (s *Session) Len() int {
	return len(s.order)
}

// Locations returns the current pixel locations in insertion order.
func (s *Session) Locations() []orb.Point {
	out := make([]orb.Point, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.points[id].Location)
	}
	return out
}

// IDs returns the active ids in insertion order.
func (s *Session) IDs() []ID {
	return append([]ID(nil), s.order...)
}

// FirstLocation returns where the current interaction started.
func (s *Session) FirstLocation() (orb.Point, bool) {
	return s.first, s.hasFirst
}

// IsAround reports whether p lies strictly within slop pixels of the first
// touch location.
func (s *Session) IsAround(p orb.Point, slop float64) bool {
	if !s.hasFirst {
		return false
	}
	return planar.Distance(s.first, p) < slop
}
