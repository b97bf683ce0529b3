package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapview/internal/mapcontrol"
	"github.com/joeblew999/plat-mapview/internal/navigator"
	"github.com/joeblew999/plat-mapview/internal/viewport"
)

func newTestService(t *testing.T) *SessionService {
	t.Helper()
	base := mapcontrol.DefaultOptions()
	base.Navigation = navigator.Options{}
	base.Limits = navigator.Limits{MinResolution: 0.1, MaxResolution: 1000}
	base.Viewport = viewport.Viewport{Resolution: 10}
	svc := NewSessionService(base, 5*time.Millisecond, nil)
	t.Cleanup(svc.Close)
	return svc
}

func newTestSession(t *testing.T, svc *SessionService) *Session {
	t.Helper()
	info, err := svc.Create(context.Background(), SessionOptions{Width: 400, Height: 400})
	require.NoError(t, err)
	sess, err := svc.Get(info.ID)
	require.NoError(t, err)
	return sess
}

// waitFor reads events until one matches or the timeout expires.
func waitFor(t *testing.T, ch chan Event, match func(Event) bool) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if match(e) {
				return e
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}
}

func gestureKind(kind string) func(Event) bool {
	return func(e Event) bool {
		return e.Kind == EventGesture && e.Gesture != nil && e.Gesture.Kind == kind
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	events := svc.Bus().Subscribe()
	defer svc.Bus().Unsubscribe(events)

	lon, level := 10.0, 8.0
	a, err := svc.Create(ctx, SessionOptions{Width: 800, Height: 600, Lon: &lon, Level: &level})
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	require.Equal(t, 800.0, a.Viewport.Width)
	require.InDelta(t, 8.0, a.Viewport.Level, 1e-9)
	require.InDelta(t, 10.0, a.Viewport.LonLat[0], 1e-9)
	require.Equal(t, "idle", a.State)
	require.Equal(t, "none", a.Mode)

	created := waitFor(t, events, func(e Event) bool { return e.Kind == EventSession })
	require.Equal(t, a.ID, created.Session)
	require.Equal(t, "created", created.Action)

	b, err := svc.Create(ctx, SessionOptions{})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, a.ID, list[0].ID)

	require.NoError(t, svc.Delete(a.ID))
	_, err = svc.Get(a.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, svc.Delete(a.ID), ErrSessionNotFound)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSessionInputPans(t *testing.T) {
	svc := newTestService(t)
	sess := newTestSession(t, svc)
	events := svc.Bus().Subscribe()
	defer svc.Bus().Unsubscribe(events)

	before, err := sess.Info(context.Background())
	require.NoError(t, err)

	_, info, err := sess.Input(context.Background(), []Input{
		{Action: "pressed", ID: 1, X: 100, Y: 100},
		{Action: "moved", ID: 1, X: 150, Y: 100},
	})
	require.NoError(t, err)
	require.Equal(t, "dragging", info.Mode)
	require.Equal(t, 1, info.Touches)
	// Dragging right moves the center west by 50px at resolution 10.
	require.InDelta(t, before.Viewport.Center.X()-500, info.Viewport.Center.X(), 1e-9)

	vp := waitFor(t, events, func(e Event) bool { return e.Kind == EventViewport })
	require.Equal(t, sess.ID(), vp.Session)
	require.NotNil(t, vp.Viewport)

	_, info, err = sess.Input(context.Background(), []Input{{Action: "released", ID: 1, X: 150, Y: 100}})
	require.NoError(t, err)
	require.Zero(t, info.Touches)

	refresh := waitFor(t, events, func(e Event) bool { return e.Kind == EventRefresh })
	require.NotNil(t, refresh.Gesture.Extent)
	require.Equal(t, info.Viewport.Extent, *refresh.Gesture.Extent)
}

func TestSessionInputRejectsBadBatches(t *testing.T) {
	sess := newTestSession(t, newTestService(t))
	ctx := context.Background()

	_, _, err := sess.Input(ctx, []Input{{Action: "poke"}})
	require.ErrorContains(t, err, "unknown action")

	_, _, err = sess.Input(ctx, []Input{
		{Action: "pressed", ID: 1, OffsetMs: 20},
		{Action: "released", ID: 1, OffsetMs: 10},
	})
	require.ErrorContains(t, err, "back in time")

	info, err := sess.Info(ctx)
	require.NoError(t, err)
	require.Zero(t, info.Touches, "rejected batches are not applied")
}

func TestSessionLongTapUsesOffsets(t *testing.T) {
	svc := newTestService(t)
	sess := newTestSession(t, svc)
	events := svc.Bus().Subscribe()
	defer svc.Bus().Unsubscribe(events)

	_, _, err := sess.Input(context.Background(), []Input{
		{Action: "pressed", ID: 3, X: 200, Y: 200},
		{Action: "released", ID: 3, X: 201, Y: 200, OffsetMs: 700},
	})
	require.NoError(t, err)

	e := waitFor(t, events, gestureKind("long-tap"))
	require.Equal(t, [2]float64{201, 200}, *e.Gesture.Point)
}

func TestSessionSingleTapDecidedOnLoop(t *testing.T) {
	svc := newTestService(t)
	sess := newTestSession(t, svc)
	events := svc.Bus().Subscribe()
	defer svc.Bus().Unsubscribe(events)

	_, info, err := sess.Input(context.Background(), []Input{
		{Action: "pressed", ID: 1, X: 50, Y: 60, Device: "mouse"},
		{Action: "released", ID: 1, X: 50, Y: 60, Device: "mouse", OffsetMs: 40},
	})
	require.NoError(t, err)
	require.Equal(t, "awaiting-double-tap", info.State)

	e := waitFor(t, events, gestureKind("single-tap"))
	require.Equal(t, 1, e.Gesture.NumTaps)

	info, err = sess.Info(context.Background())
	require.NoError(t, err)
	require.Equal(t, "idle", info.State)
}

func TestSessionBatchedTapsOutsideWindowStaySingle(t *testing.T) {
	svc := newTestService(t)
	sess := newTestSession(t, svc)
	events := svc.Bus().Subscribe()
	defer svc.Bus().Unsubscribe(events)

	_, _, err := sess.Input(context.Background(), []Input{
		{Action: "pressed", ID: 1, X: 200, Y: 200},
		{Action: "released", ID: 1, X: 200, Y: 200, OffsetMs: 50},
		{Action: "pressed", ID: 1, X: 200, Y: 200, OffsetMs: 1000},
		{Action: "released", ID: 1, X: 200, Y: 200, OffsetMs: 1050},
	})
	require.NoError(t, err)

	var kinds []string
	singles := 0
	waitFor(t, events, func(e Event) bool {
		if e.Kind != EventGesture || e.Gesture == nil {
			return false
		}
		kinds = append(kinds, e.Gesture.Kind)
		if e.Gesture.Kind == "single-tap" {
			singles++
		}
		return singles == 2
	})
	require.NotContains(t, kinds, "double-tap")

	info, err := sess.Info(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 10.0, info.Viewport.Resolution, 1e-9)
}

func TestSessionFlingAnimatesUntilDone(t *testing.T) {
	svc := newTestService(t)
	sess := newTestSession(t, svc)
	events := svc.Bus().Subscribe()
	defer svc.Bus().Unsubscribe(events)

	_, info, err := sess.Input(context.Background(), []Input{
		{Action: "pressed", ID: 1, X: 100, Y: 200},
		{Action: "moved", ID: 1, X: 130, Y: 200, OffsetMs: 24},
		{Action: "moved", ID: 1, X: 160, Y: 200, OffsetMs: 48},
		{Action: "released", ID: 1, X: 160, Y: 200, OffsetMs: 48},
	})
	require.NoError(t, err)
	require.True(t, info.Animating)

	e := waitFor(t, events, gestureKind("fling"))
	require.InDelta(t, 1250.0, e.Gesture.VelocityX, 1e-6)

	require.Eventually(t, func() bool {
		info, err := sess.Info(context.Background())
		return err == nil && !info.Animating
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionNavigation(t *testing.T) {
	sess := newTestSession(t, newTestService(t))
	ctx := context.Background()

	info, err := sess.Navigate(ctx, func(n *navigator.Navigator) { n.ZoomTo(2) })
	require.NoError(t, err)
	require.InDelta(t, 2.0, info.Viewport.Resolution, 1e-9)

	info, err = sess.Navigate(ctx, func(n *navigator.Navigator) { n.RotateTo(45) })
	require.NoError(t, err)
	require.InDelta(t, 45.0, info.Viewport.Rotation, 1e-9)

	info, err = sess.SetLimits(ctx, navigator.Limits{MinResolution: 5, MaxResolution: 1000})
	require.NoError(t, err)
	require.InDelta(t, 5.0, info.Viewport.Resolution, 1e-9)

	info, err = sess.SetSize(ctx, 1024, 768)
	require.NoError(t, err)
	require.Equal(t, 1024.0, info.Viewport.Width)

	changed, _, err := sess.Tick(ctx)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestSessionClosedLoop(t *testing.T) {
	svc := newTestService(t)
	sess := newTestSession(t, svc)
	require.NoError(t, svc.Delete(sess.ID()))

	_, err := sess.Info(context.Background())
	require.ErrorIs(t, err, mapcontrol.ErrLoopStopped)
}
