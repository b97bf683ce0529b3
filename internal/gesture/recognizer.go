package gesture

import (
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapview/internal/logging"
	"github.com/joeblew999/plat-mapview/internal/navigator"
	"github.com/joeblew999/plat-mapview/internal/touch"
	"github.com/joeblew999/plat-mapview/internal/velocity"
	"github.com/joeblew999/plat-mapview/internal/viewport"
)

// Mode is the current interaction mode.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeDragging
	ModeZooming
)

func (m Mode) String() string {
	switch m {
	case ModeDragging:
		return "dragging"
	case ModeZooming:
		return "zooming"
	}
	return "none"
}

// State is the coarse recognizer state.
type State uint8

const (
	StateIdle State = iota
	StateAwaitingRelease
	StateAwaitingDoubleTap
)

func (s State) String() string {
	switch s {
	case StateAwaitingRelease:
		return "awaiting-release"
	case StateAwaitingDoubleTap:
		return "awaiting-double-tap"
	}
	return "idle"
}

// Navigator is the viewport surface the recognizer drives.
type Navigator interface {
	Viewport() viewport.Viewport
	Limits() navigator.Limits
	StopRunningAnimation()
	PanBy(delta orb.Point) bool
	Transform(center, previous orb.Point, ratio, rotationDelta float64) bool
	ZoomIn(p orb.Point)
	ZoomOut(p orb.Point)
	FlingWith(vx, vy float64, maxDuration time.Duration)
}

// HitResult is the answer of a HitTester.
type HitResult struct {
	// Hit is set when a feature lies under the point.
	Hit bool
	// Handled is set when a widget consumed the tap.
	Handled bool
	// Info is passed to the application in an Info event.
	Info any
}

// HitTester looks up what lies under a screen point.
type HitTester interface {
	HitTest(p orb.Point, numTaps int) HitResult
}

// DataRefresher is asked for new data when an interaction ends.
type DataRefresher interface {
	RefreshData(extent orb.Bound, resolution float64)
}

type pinchState struct {
	center orb.Point
	radius float64
	angle  float64
	inner  float64
}

// Recognizer turns raw pointer input into gestures, drives the navigator
// and dispatches semantic events. It is not safe for concurrent use; the
// scheduler must run its callbacks on the goroutine that calls Process.
type Recognizer struct {
	Dispatcher

	cfg     Config
	nav     Navigator
	sched   Scheduler
	session *touch.Session
	tracker *velocity.Tracker
	hit     HitTester
	refresh DataRefresher

	mode           Mode
	previousCenter orb.Point
	pinch          pinchState

	waitingForDoubleTap bool
	tapCount            int
	tapGen              uint64
	tapPoint            orb.Point
	tapAt               time.Time
	tapDelay            time.Duration
	cancelTap           func()
}

// New creates a recognizer.
func New(cfg Config, nav Navigator, sched Scheduler) *Recognizer {
	tracker := velocity.NewTracker(cfg.TrackingWindow)
	return &Recognizer{
		cfg:     cfg,
		nav:     nav,
		sched:   sched,
		tracker: tracker,
		session: touch.NewSession(tracker),
	}
}

// SetHitTester installs the hit-test collaborator.
func (r *Recognizer) SetHitTester(h HitTester) { r.hit = h }

// SetDataRefresher installs the data refresh collaborator.
func (r *Recognizer) SetDataRefresher(d DataRefresher) { r.refresh = d }

// Config returns the active configuration.
func (r *Recognizer) Config() Config { return r.cfg }

// Mode returns the interaction mode.
func (r *Recognizer) Mode() Mode { return r.mode }

// State returns the coarse recognizer state.
func (r *Recognizer) State() State {
	switch {
	case r.session.Len() > 0:
		return StateAwaitingRelease
	case r.waitingForDoubleTap:
		return StateAwaitingDoubleTap
	}
	return StateIdle
}

// Touches returns the active touch locations.
func (r *Recognizer) Touches() []orb.Point { return r.session.Locations() }

// Process handles one raw input. The outcome tells the host whether the
// input was consumed.
func (r *Recognizer) Process(in Input) Outcome {
	switch in.Action {
	case Pressed:
		return r.pressed(in)
	case Moved:
		return r.moved(in)
	case Released:
		return r.released(in)
	case Cancelled:
		r.Reset()
		return Outcome{}
	case Entered:
		return r.entered()
	case Exited:
		return r.exited(in)
	case WheelChanged:
		return r.wheel(in)
	}
	return Outcome{}
}

// Reset drops all touches and pending tap decisions without callbacks.
func (r *Recognizer) Reset() {
	r.session.Cancel()
	r.tracker.Clear()
	r.clearTaps()
	r.pinch = pinchState{}
	r.setMode(ModeNone)
}

func (r *Recognizer) pressed(in Input) Outcome {
	// Batched inputs can outrun the double-tap timer.
	if r.waitingForDoubleTap && in.Time.Sub(r.tapAt) > r.tapDelay {
		r.cancelPending()
		r.decideTap(r.tapPoint)
	}
	first := r.session.Down(in.ID, in.Location, in.Time)
	if first && r.waitingForDoubleTap {
		r.waitingForDoubleTap = false
		r.cancelPending()
		r.tapCount++
	} else {
		r.tapCount = 1
	}
	r.tracker.Clear()
	r.tracker.AddSample(int64(in.ID), in.Location, in.Time)
	return r.touchStart()
}

func (r *Recognizer) touchStart() Outcome {
	points := r.session.Locations()
	if len(points) == 0 {
		return Outcome{}
	}
	r.nav.StopRunningAnimation()
	if out := r.Dispatch(Event{Kind: TouchStarted, Points: points}); out.Handled {
		return out
	}
	if len(points) == 2 {
		center, radius, angle, err := PinchValues(points)
		if err != nil {
			logging.Logger().Warn("gesture: pinch start", "error", err)
			return Outcome{}
		}
		r.pinch = pinchState{
			center: center,
			radius: radius,
			angle:  angle,
			inner:  r.nav.Viewport().Rotation,
		}
		r.setMode(ModeZooming)
	} else {
		r.previousCenter = points[0]
		r.setMode(ModeDragging)
	}
	return Outcome{Handled: true}
}

func (r *Recognizer) moved(in Input) Outcome {
	if !in.InContact {
		r.session.Move(in.ID, in.Location, in.Time, false)
		return r.Dispatch(Event{Kind: Hovered, Point: in.Location})
	}
	if !r.session.Move(in.ID, in.Location, in.Time, true) {
		return Outcome{}
	}
	points := r.session.Locations()
	if out := r.Dispatch(Event{Kind: TouchMoved, Points: points}); out.Handled {
		r.follow(points)
		return out
	}

	switch r.mode {
	case ModeDragging:
		if len(points) != 1 {
			return Outcome{}
		}
		delta := orb.Point{points[0].X() - r.previousCenter.X(), points[0].Y() - r.previousCenter.Y()}
		r.nav.PanBy(delta)
		r.previousCenter = points[0]
	case ModeZooming:
		if len(points) != 2 {
			return Outcome{}
		}
		r.pinchStep(points)
	default:
		return Outcome{}
	}
	return Outcome{Handled: true}
}

// follow moves the drag and pinch anchors to touches a handler consumed.
func (r *Recognizer) follow(points []orb.Point) {
	switch {
	case r.mode == ModeDragging && len(points) == 1:
		r.previousCenter = points[0]
	case r.mode == ModeZooming && len(points) == 2:
		center, radius, angle, err := PinchValues(points)
		if err != nil {
			return
		}
		r.pinch.center, r.pinch.radius, r.pinch.angle = center, radius, angle
	}
}

func (r *Recognizer) pinchStep(points []orb.Point) {
	center, radius, angle, err := PinchValues(points)
	if err != nil {
		logging.Logger().Warn("gesture: pinch move", "error", err)
		return
	}
	inner := r.pinch.inner
	rotation := 0.0
	if !r.nav.Limits().RotationLock {
		inner = viewport.NormalizeRotation(inner + angle - r.pinch.angle)
		rotation = SnapRotation(inner, r.nav.Viewport().Rotation, r.cfg.UnSnapRotation, r.cfg.ReSnapRotation)
	}
	r.nav.Transform(center, r.pinch.center, pinchRatio(r.pinch.radius, radius), rotation)
	r.pinch = pinchState{center: center, radius: radius, angle: angle, inner: inner}
}

func (r *Recognizer) released(in Input) Outcome {
	released, ok := r.session.Up(in.ID)
	if !ok {
		return Outcome{}
	}
	var out Outcome
	if r.session.Len() == 0 {
		out = r.lastReleased(in, released)
	}
	r.tracker.RemoveID(int64(in.ID))
	if r.session.Len() == 1 {
		out = r.touchStart()
	}
	if ended := r.Dispatch(Event{Kind: TouchEnded, Points: r.session.Locations(), Released: released.Location}); ended.Handled {
		out.Handled = true
	}
	if r.session.Len() == 0 {
		r.setMode(ModeNone)
		r.refreshData()
	}
	return out
}

func (r *Recognizer) lastReleased(in Input, released touch.Point) Outcome {
	vx, vy := r.tracker.Velocity(int64(in.ID), in.Time)
	if math.Abs(vx) > r.cfg.FlingVelocity || math.Abs(vy) > r.cfg.FlingVelocity {
		return r.fling(in.Location, vx, vy)
	}
	if !r.session.IsAround(in.Location, r.cfg.TapSlop) {
		if s := r.cfg.SwipeVelocity; s > 0 && (math.Abs(vx) > s || math.Abs(vy) > s) {
			return r.Dispatch(Event{Kind: Swipe, Point: in.Location, VelocityX: vx, VelocityY: vy})
		}
		return Outcome{}
	}
	timing := r.cfg.Timing(in.Device)
	elapsed := in.Time.Sub(released.PressedAt)
	switch {
	case elapsed < timing.TapMax:
		r.tapCandidate(in.Location, in.Time, timing)
		return Outcome{Handled: true}
	case elapsed >= timing.LongTap:
		r.clearTaps()
		logging.Logger().Debug("gesture: long tap", "point", in.Location, "elapsed", elapsed)
		return r.Dispatch(Event{Kind: LongTap, Point: in.Location, NumTaps: 1})
	}
	return Outcome{}
}

func (r *Recognizer) tapCandidate(p orb.Point, at time.Time, timing Timing) {
	r.cancelPending()
	r.waitingForDoubleTap = true
	r.tapPoint = p
	r.tapAt = at
	r.tapDelay = timing.DoubleTapDelay
	r.tapGen++
	gen := r.tapGen
	decide := func() {
		if gen != r.tapGen || !r.waitingForDoubleTap {
			return
		}
		r.decideTap(p)
	}
	if !r.cfg.UseDoubleTap || r.sched == nil {
		decide()
		return
	}
	r.cancelTap = r.sched.AfterFunc(timing.DoubleTapDelay, decide)
}

func (r *Recognizer) decideTap(p orb.Point) {
	count := r.tapCount
	r.clearTaps()
	logging.Logger().Debug("gesture: tap decided", "point", p, "taps", count)
	if count > 1 {
		r.doubleTapped(p, count)
		return
	}
	r.singleTapped(p)
}

func (r *Recognizer) singleTapped(p orb.Point) Outcome {
	if out := r.Dispatch(Event{Kind: SingleTap, Point: p, NumTaps: 1}); out.Handled {
		return out
	}
	hit := r.hitTest(p, 1)
	if hit.Handled {
		return Outcome{Handled: true}
	}
	if hit.Hit {
		return r.Dispatch(Event{Kind: Info, Point: p, NumTaps: 1, Info: hit.Info})
	}
	return Outcome{}
}

func (r *Recognizer) doubleTapped(p orb.Point, count int) Outcome {
	if out := r.Dispatch(Event{Kind: DoubleTap, Point: p, NumTaps: count}); out.Handled {
		return out
	}
	if hit := r.hitTest(p, count); hit.Handled {
		return Outcome{Handled: true}
	}
	return r.zoom(p, ZoomIn)
}

func (r *Recognizer) fling(p orb.Point, vx, vy float64) Outcome {
	if out := r.Dispatch(Event{Kind: Fling, Point: p, VelocityX: vx, VelocityY: vy}); out.Handled {
		return out
	}
	r.nav.FlingWith(vx, vy, r.cfg.FlingDuration)
	return Outcome{Handled: true}
}

func (r *Recognizer) zoom(p orb.Point, dir ZoomDirection) Outcome {
	if r.nav.Limits().ZoomLock {
		return Outcome{Handled: true}
	}
	if out := r.Dispatch(Event{Kind: Zoomed, Point: p, Direction: dir}); out.Handled {
		return out
	}
	if dir == ZoomIn {
		r.nav.ZoomIn(p)
	} else {
		r.nav.ZoomOut(p)
	}
	return Outcome{Handled: true}
}

func (r *Recognizer) entered() Outcome {
	points := r.session.Locations()
	if len(points) == 0 {
		return Outcome{}
	}
	if out := r.Dispatch(Event{Kind: TouchEntered, Points: points}); out.Handled {
		return out
	}
	r.nav.StopRunningAnimation()
	return Outcome{Handled: true}
}

func (r *Recognizer) exited(in Input) Outcome {
	released, ok := r.session.Up(in.ID)
	if !ok {
		return Outcome{}
	}
	r.tracker.RemoveID(int64(in.ID))
	out := r.Dispatch(Event{Kind: TouchExited, Points: r.session.Locations(), Released: released.Location})
	if r.session.Len() == 0 {
		r.setMode(ModeNone)
		r.refreshData()
	}
	return out
}

func (r *Recognizer) wheel(in Input) Outcome {
	switch {
	case in.WheelDelta > 0:
		return r.zoom(in.Location, ZoomIn)
	case in.WheelDelta < 0:
		return r.zoom(in.Location, ZoomOut)
	}
	return Outcome{}
}

func (r *Recognizer) hitTest(p orb.Point, numTaps int) HitResult {
	if r.hit == nil {
		return HitResult{}
	}
	return r.hit.HitTest(p, numTaps)
}

func (r *Recognizer) refreshData() {
	if r.refresh == nil {
		return
	}
	v := r.nav.Viewport()
	if !v.HasSize() {
		return
	}
	r.refresh.RefreshData(v.Extent(), v.Resolution)
}

func (r *Recognizer) cancelPending() {
	if r.cancelTap != nil {
		r.cancelTap()
		r.cancelTap = nil
	}
}

func (r *Recognizer) clearTaps() {
	r.cancelPending()
	r.tapGen++
	r.waitingForDoubleTap = false
	r.tapCount = 0
}

func (r *Recognizer) setMode(m Mode) {
	if r.mode == m {
		return
	}
	logging.Logger().Debug("gesture: mode", "from", r.mode, "to", m)
	r.mode = m
}
