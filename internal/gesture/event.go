package gesture

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapview/internal/touch"
)

// Action is the kind of a raw pointer event.
type Action uint8

const (
	Pressed Action = iota
	Moved
	Released
	Cancelled
	Entered
	Exited
	WheelChanged
)

var actionNames = [...]string{"pressed", "moved", "released", "cancelled", "entered", "exited", "wheel"}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// ParseAction maps an action name back to an Action.
func ParseAction(s string) (Action, bool) {
	for i, n := range actionNames {
		if n == s {
			return Action(i), true
		}
	}
	return 0, false
}

// Input is one raw pointer event from the host toolkit.
type Input struct {
	Action     Action
	ID         touch.ID
	Location   orb.Point // pixels
	Time       time.Time
	Device     touch.Device
	InContact  bool // Moved only: false for hover
	WheelDelta int  // WheelChanged only
}

// Kind identifies a semantic gesture event.
type Kind uint8

const (
	TouchStarted Kind = iota
	TouchMoved
	TouchEnded
	TouchEntered
	TouchExited
	Hovered
	SingleTap
	DoubleTap
	LongTap
	Swipe
	Fling
	Zoomed
	Info
)

var kindNames = [...]string{
	"touch-started", "touch-moved", "touch-ended", "touch-entered", "touch-exited",
	"hovered", "single-tap", "double-tap", "long-tap", "swipe", "fling", "zoomed", "info",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ZoomDirection of a Zoomed event.
type ZoomDirection uint8

const (
	ZoomIn ZoomDirection = iota + 1
	ZoomOut
)

func (d ZoomDirection) String() string {
	switch d {
	case ZoomIn:
		return "in"
	case ZoomOut:
		return "out"
	}
	return ""
}

// Event is a recognized gesture delivered to application handlers.
type Event struct {
	Kind Kind
	// Points are the active touch locations.
	Points []orb.Point
	// Point is the tap, hover, swipe or zoom location.
	Point orb.Point
	// Released is the lifted contact of TouchEnded and TouchExited.
	Released  orb.Point
	NumTaps   int
	VelocityX float64
	VelocityY float64
	Direction ZoomDirection
	// Info carries the hit-test payload of an Info event.
	Info any
}

// Outcome is a handler's answer. Handled suppresses the built-in behavior
// and any later handler for the same event.
type Outcome struct {
	Handled bool
}

// Handler reacts to a gesture event.
type Handler func(Event) Outcome

// Dispatcher delivers events to handlers registered per kind, in
// registration order. The first handler that reports Handled wins.
type Dispatcher struct {
	handlers  map[Kind][]Handler
	observers []func(Event)
}

// Handle registers h for events of kind k.
func (d *Dispatcher) Handle(k Kind, h Handler) {
	if d.handlers == nil {
		d.handlers = make(map[Kind][]Handler)
	}
	d.handlers[k] = append(d.handlers[k], h)
}

// Observe registers fn to see every event before the handlers. Observers
// cannot claim events.
func (d *Dispatcher) Observe(fn func(Event)) {
	d.observers = append(d.observers, fn)
}

// Dispatch delivers e and returns the combined outcome.
func (d *Dispatcher) Dispatch(e Event) Outcome {
	for _, fn := range d.observers {
		fn(e)
	}
	for _, h := range d.handlers[e.Kind] {
		if out := h(e); out.Handled {
			return out
		}
	}
	return Outcome{}
}
