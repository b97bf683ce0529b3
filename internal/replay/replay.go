// Package replay runs scripted pointer input through a map control on a
// virtual clock and records the recognized gestures.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-mapview/internal/gesture"
	"github.com/joeblew999/plat-mapview/internal/mapcontrol"
	"github.com/joeblew999/plat-mapview/internal/navigator"
	"github.com/joeblew999/plat-mapview/internal/touch"
	"github.com/joeblew999/plat-mapview/internal/viewport"
)

// ActionTick advances animations instead of feeding input.
const ActionTick = "tick"

// Epoch is the virtual time of offset zero.
var Epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Script is a recorded interaction.
type Script struct {
	Name     string             `yaml:"name"`
	Viewport *viewport.Viewport `yaml:"viewport,omitempty"`
	Limits   *navigator.Limits  `yaml:"limits,omitempty"`
	Steps    []Step             `yaml:"steps"`
	// Expect lists gesture kinds that must occur in this order. Other
	// events may occur in between.
	Expect []string `yaml:"expect,omitempty"`
}

// Step is one input at an offset from the start of the script.
type Step struct {
	At         time.Duration `yaml:"at"`
	Action     string        `yaml:"action"`
	ID         int64         `yaml:"id,omitempty"`
	X          float64       `yaml:"x,omitempty"`
	Y          float64       `yaml:"y,omitempty"`
	Device     string        `yaml:"device,omitempty"`
	Hover      bool          `yaml:"hover,omitempty"`
	WheelDelta int           `yaml:"wheel,omitempty"`
}

// Entry is one recognized gesture.
type Entry struct {
	At        time.Duration `yaml:"at" json:"at"`
	Kind      string        `yaml:"kind" json:"kind"`
	Point     []float64     `yaml:"point,flow,omitempty" json:"point,omitempty"`
	Touches   int           `yaml:"touches,omitempty" json:"touches,omitempty"`
	NumTaps   int           `yaml:"taps,omitempty" json:"taps,omitempty"`
	VelocityX float64       `yaml:"vx,omitempty" json:"vx,omitempty"`
	VelocityY float64       `yaml:"vy,omitempty" json:"vy,omitempty"`
	Direction string        `yaml:"direction,omitempty" json:"direction,omitempty"`
}

// Result is the outcome of a replay.
type Result struct {
	Name     string            `yaml:"name" json:"name"`
	Events   []Entry           `yaml:"events" json:"events"`
	Viewport viewport.Viewport `yaml:"viewport" json:"viewport"`
}

// Kinds returns the event kinds in order.
func (r Result) Kinds() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Kind
	}
	return out
}

// Decode parses a YAML script.
func Decode(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads a YAML script from disk.
func LoadFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Validate checks step order and action names.
func (s *Script) Validate() error {
	var last time.Duration
	for i, st := range s.Steps {
		if st.At < last {
			return fmt.Errorf("step %d: at %s is before %s", i, st.At, last)
		}
		last = st.At
		if st.Action == ActionTick {
			continue
		}
		if _, ok := gesture.ParseAction(st.Action); !ok {
			return fmt.Errorf("step %d: unknown action %q", i, st.Action)
		}
	}
	return nil
}

// Run replays s on a fresh control built from opts. Clock and scheduler
// are replaced by a virtual clock. After the last step the clock runs on
// by settle so pending tap decisions and animations complete.
func Run(s *Script, opts mapcontrol.Options, settle time.Duration) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	sched := gesture.NewManualScheduler(Epoch)
	opts.Clock = sched.Now
	opts.Scheduler = sched
	if s.Viewport != nil {
		opts.Viewport = *s.Viewport
	}
	if s.Limits != nil {
		opts.Limits = *s.Limits
	}
	c := mapcontrol.New(opts)

	res := Result{Name: s.Name}
	c.Observe(func(e gesture.Event) {
		res.Events = append(res.Events, entry(sched.Now().Sub(Epoch), e))
	})

	for _, st := range s.Steps {
		advance(c, sched, Epoch.Add(st.At))
		if st.Action == ActionTick {
			continue
		}
		action, _ := gesture.ParseAction(st.Action)
		c.HandleInput(gesture.Input{
			Action:     action,
			ID:         touch.ID(st.ID),
			Location:   orb.Point{st.X, st.Y},
			Time:       sched.Now(),
			Device:     touch.ParseDevice(st.Device),
			InContact:  !st.Hover,
			WheelDelta: st.WheelDelta,
		})
	}
	advance(c, sched, sched.Now().Add(settle))
	res.Viewport = c.Viewport()
	return res, nil
}

// advance moves the clock to t in frame steps so animations progress the
// way a rendering host would drive them.
func advance(c *mapcontrol.Control, sched *gesture.ManualScheduler, t time.Time) {
	const frame = 16 * time.Millisecond
	for sched.Now().Before(t) {
		next := sched.Now().Add(frame)
		if next.After(t) {
			next = t
		}
		sched.AdvanceTo(next)
		c.Tick()
	}
}

// Verify checks that the expected kinds occur in order.
func (s *Script) Verify(r Result) error {
	got := r.Kinds()
	i := 0
	for _, k := range got {
		if i < len(s.Expect) && k == s.Expect[i] {
			i++
		}
	}
	if i == len(s.Expect) {
		return nil
	}
	return fmt.Errorf("%w: missing %q (want %s, got %s)", ErrUnexpected, s.Expect[i],
		strings.Join(s.Expect, ","), strings.Join(got, ","))
}

// ErrUnexpected is returned by Verify when the expectations are not met.
var ErrUnexpected = errors.New("replay: unexpected gestures")

// Gestures drops the touch lifecycle events, leaving recognized gestures.
func (r Result) Gestures() []Entry {
	lifecycle := []string{
		gesture.TouchStarted.String(), gesture.TouchMoved.String(), gesture.TouchEnded.String(),
	}
	var out []Entry
	for _, e := range r.Events {
		if !slices.Contains(lifecycle, e.Kind) {
			out = append(out, e)
		}
	}
	return out
}

func entry(at time.Duration, e gesture.Event) Entry {
	out := Entry{
		At:        at,
		Kind:      e.Kind.String(),
		Touches:   len(e.Points),
		NumTaps:   e.NumTaps,
		VelocityX: e.VelocityX,
		VelocityY: e.VelocityY,
		Direction: e.Direction.String(),
	}
	switch e.Kind {
	case gesture.TouchStarted, gesture.TouchMoved:
	case gesture.TouchEnded, gesture.TouchExited:
		out.Point = []float64{e.Released.X(), e.Released.Y()}
	default:
		out.Point = []float64{e.Point.X(), e.Point.Y()}
	}
	return out
}
