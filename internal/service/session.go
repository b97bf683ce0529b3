package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapview/internal/gesture"
	"github.com/joeblew999/plat-mapview/internal/logging"
	"github.com/joeblew999/plat-mapview/internal/mapcontrol"
	"github.com/joeblew999/plat-mapview/internal/navigator"
	"github.com/joeblew999/plat-mapview/internal/touch"
	"github.com/joeblew999/plat-mapview/internal/viewport"
)

var (
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidInput is returned for input batches that cannot be applied.
	ErrInvalidInput = errors.New("invalid input")
)

// SessionService manages hosted map controls, one per session.
type SessionService struct {
	base          mapcontrol.Options
	frameInterval time.Duration
	bus           *EventBus
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService creates a session service. base is the template for
// new controls; clock and scheduler are set per session.
func NewSessionService(base mapcontrol.Options, frameInterval time.Duration, bus *EventBus) *SessionService {
	if frameInterval <= 0 {
		frameInterval = 16 * time.Millisecond
	}
	if bus == nil {
		bus = NewEventBus()
	}
	return &SessionService{
		base:          base,
		frameInterval: frameInterval,
		bus:           bus,
		now:           time.Now,
		sessions:      make(map[string]*Session),
	}
}

// FrameInterval returns the animation frame interval.
func (s *SessionService) FrameInterval() time.Duration { return s.frameInterval }

// Bus returns the event bus sessions publish on.
func (s *SessionService) Bus() *EventBus { return s.bus }

// Session is one hosted control. All control access goes through its loop.
type Session struct {
	id        string
	createdAt time.Time
	loop      *mapcontrol.Loop
	control   *mapcontrol.Control
	bus       *EventBus
	now       func() time.Time
	frame     time.Duration
	wake      chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// Create starts a new session.
func (s *SessionService) Create(ctx context.Context, opts SessionOptions) (SessionInfo, error) {
	co := s.base
	if opts.Limits != nil {
		co.Limits = *opts.Limits
	}
	if opts.Lon != nil || opts.Lat != nil {
		var lon, lat float64
		if opts.Lon != nil {
			lon = *opts.Lon
		}
		if opts.Lat != nil {
			lat = *opts.Lat
		}
		co.Viewport.Center = navigator.LonLatToMercator(lon, lat)
	}
	if opts.Level != nil {
		co.Viewport.Resolution = navigator.LevelResolution(*opts.Level)
	}
	if opts.Rotation != 0 {
		co.Viewport.Rotation = opts.Rotation
	}

	loop := mapcontrol.NewLoop(0)
	co.Clock = s.now
	co.Scheduler = loop

	runCtx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		id:        uuid.NewString(),
		createdAt: s.now(),
		loop:      loop,
		bus:       s.bus,
		now:       s.now,
		frame:     s.frameInterval,
		wake:      make(chan struct{}, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	var info SessionInfo
	err := loop.Do(ctx, func() {
		c := mapcontrol.New(co)
		c.OnViewportChanged(func(v viewport.Viewport) {
			st := NewViewportState(v)
			sess.bus.Publish(Event{Session: sess.id, Kind: EventViewport, Viewport: &st})
		})
		c.Observe(func(e gesture.Event) {
			g := NewGestureEvent(e, sess.now())
			sess.bus.Publish(Event{Session: sess.id, Kind: EventGesture, Gesture: &g})
		})
		c.SetDataRefresher(sess)
		if opts.Width > 0 || opts.Height > 0 {
			c.SetSize(opts.Width, opts.Height)
		}
		sess.control = c
		info = sess.info()
	})
	if err != nil {
		cancel()
		loop.Stop()
		return SessionInfo{}, fmt.Errorf("create session: %w", err)
	}
	go sess.drive(runCtx)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	logging.Logger().Info("session created", "id", sess.id)
	s.bus.Publish(Event{Session: sess.id, Kind: EventSession, Action: "created"})
	return info, nil
}

// Get returns a session by ID.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// List returns all sessions, oldest first.
func (s *SessionService) List(ctx context.Context) ([]SessionInfo, error) {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].createdAt.Before(sessions[j].createdAt)
	})
	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		info, err := sess.Info(ctx)
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

// Delete stops and removes a session.
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.close()
	logging.Logger().Info("session deleted", "id", id)
	s.bus.Publish(Event{Session: id, Kind: EventSession, Action: "deleted"})
	return nil
}

// Close stops every session.
func (s *SessionService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
	}
}

// ID returns the session ID.
func (sess *Session) ID() string { return sess.id }

// Info returns a snapshot of the session.
func (sess *Session) Info(ctx context.Context) (SessionInfo, error) {
	var info SessionInfo
	err := sess.loop.Do(ctx, func() { info = sess.info() })
	return info, err
}

func (sess *Session) info() SessionInfo {
	c := sess.control
	return SessionInfo{
		ID:        sess.id,
		CreatedAt: sess.createdAt,
		Viewport:  NewViewportState(c.Viewport()),
		State:     c.State().String(),
		Mode:      c.Mode().String(),
		Touches:   len(c.Touches()),
		Animating: c.Animating(),
	}
}

// Input feeds a batch of raw pointer events and returns how many were
// consumed by the control.
func (sess *Session) Input(ctx context.Context, inputs []Input) (int, SessionInfo, error) {
	converted := make([]gesture.Input, 0, len(inputs))
	arrival := sess.now()
	var last int64
	for i, in := range inputs {
		action, ok := gesture.ParseAction(in.Action)
		if !ok {
			return 0, SessionInfo{}, fmt.Errorf("%w: input %d: unknown action %q", ErrInvalidInput, i, in.Action)
		}
		if in.OffsetMs < last {
			return 0, SessionInfo{}, fmt.Errorf("%w: input %d: offsetMs %d goes back in time", ErrInvalidInput, i, in.OffsetMs)
		}
		last = in.OffsetMs
		converted = append(converted, gesture.Input{
			Action:     action,
			ID:         touch.ID(in.ID),
			Location:   orb.Point{in.X, in.Y},
			Time:       arrival.Add(time.Duration(in.OffsetMs) * time.Millisecond),
			Device:     touch.ParseDevice(in.Device),
			InContact:  !in.Hover,
			WheelDelta: in.WheelDelta,
		})
	}

	var handled int
	var info SessionInfo
	err := sess.loop.Do(ctx, func() {
		for _, in := range converted {
			if sess.control.HandleInput(in).Handled {
				handled++
			}
		}
		info = sess.info()
	})
	if err != nil {
		return 0, SessionInfo{}, err
	}
	sess.kick()
	return handled, info, nil
}

// SetSize resizes the control's screen.
func (sess *Session) SetSize(ctx context.Context, width, height float64) (SessionInfo, error) {
	return sess.update(ctx, func(c *mapcontrol.Control) { c.SetSize(width, height) })
}

// SetLimits replaces the navigation limits.
func (sess *Session) SetLimits(ctx context.Context, l navigator.Limits) (SessionInfo, error) {
	return sess.update(ctx, func(c *mapcontrol.Control) { c.SetLimits(l) })
}

// Navigate runs fn against the session's navigator.
func (sess *Session) Navigate(ctx context.Context, fn func(*navigator.Navigator)) (SessionInfo, error) {
	return sess.update(ctx, func(c *mapcontrol.Control) { fn(c.Navigator()) })
}

// Fling starts a kinetic pan capped at the configured fling duration.
func (sess *Session) Fling(ctx context.Context, vx, vy float64) (SessionInfo, error) {
	return sess.update(ctx, func(c *mapcontrol.Control) {
		c.Navigator().FlingWith(vx, vy, c.Config().FlingDuration)
	})
}

// Tick advances animations once, whether or not the frame driver is
// running.
func (sess *Session) Tick(ctx context.Context) (bool, SessionInfo, error) {
	var changed bool
	info, err := sess.update(ctx, func(c *mapcontrol.Control) { changed = c.Tick() })
	return changed, info, err
}

func (sess *Session) update(ctx context.Context, fn func(*mapcontrol.Control)) (SessionInfo, error) {
	var info SessionInfo
	err := sess.loop.Do(ctx, func() {
		fn(sess.control)
		info = sess.info()
	})
	if err != nil {
		return SessionInfo{}, err
	}
	sess.kick()
	return info, nil
}

// RefreshData publishes a refresh request for the visible extent. It runs
// on the session loop.
func (sess *Session) RefreshData(extent orb.Bound, resolution float64) {
	e := [4]float64{extent.Min.X(), extent.Min.Y(), extent.Max.X(), extent.Max.Y()}
	sess.bus.Publish(Event{Session: sess.id, Kind: EventRefresh, Gesture: &GestureEvent{
		Kind:   EventRefresh,
		Extent: &e,
		At:     sess.now(),
	}})
	logging.Logger().Debug("session: refresh data", "id", sess.id, "resolution", resolution)
}

func (sess *Session) kick() {
	select {
	case sess.wake <- struct{}{}:
	default:
	}
}

// drive ticks animations every frame while one is running.
func (sess *Session) drive(ctx context.Context) {
	defer close(sess.done)
	ticker := time.NewTicker(sess.frame)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.wake:
		}
		for {
			var animating bool
			if err := sess.loop.Do(ctx, func() {
				sess.control.Tick()
				animating = sess.control.Animating()
			}); err != nil {
				return
			}
			if !animating {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func (sess *Session) close() {
	sess.cancel()
	<-sess.done
	sess.loop.Stop()
}
