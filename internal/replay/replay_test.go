package replay

import (
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapview/internal/mapcontrol"
)

func runFile(t *testing.T, path string) (*Script, Result) {
	t.Helper()
	s, err := LoadFile(path)
	require.NoError(t, err)
	res, err := Run(s, mapcontrol.DefaultOptions(), time.Second)
	require.NoError(t, err)
	require.NoError(t, s.Verify(res))
	return s, res
}

func TestDoubleTapScript(t *testing.T) {
	_, res := runFile(t, "testdata/double_tap.yaml")

	var taps []Entry
	for _, e := range res.Gestures() {
		if e.Kind == "double-tap" {
			taps = append(taps, e)
		}
	}
	require.Len(t, taps, 1)
	require.Equal(t, 2, taps[0].NumTaps)
	require.Equal(t, 400*time.Millisecond, taps[0].At)
	require.InDelta(t, 5.0, res.Viewport.Resolution, 1e-9)
	require.NotContains(t, res.Kinds(), "single-tap")
}

func TestFlingScript(t *testing.T) {
	s, res := runFile(t, "testdata/fling.yaml")
	world := s.Viewport.ScreenToWorld(orb.Point{100, 200})

	g := res.Gestures()
	require.Len(t, g, 1)
	require.InDelta(t, 1250.0, g[0].VelocityX, 1e-6)
	require.Greater(t, res.Viewport.WorldToScreen(world).X(), 200.0)
}

func TestPinchScript(t *testing.T) {
	_, res := runFile(t, "testdata/pinch.yaml")
	require.InDelta(t, 10*100.0/210.0, res.Viewport.Resolution, 1e-9)
	require.Empty(t, res.Gestures())
}

func TestDecodeRejectsBadScripts(t *testing.T) {
	_, err := Decode(strings.NewReader(`
steps:
  - {at: 10ms, action: pressed}
  - {at: 5ms, action: released}
`))
	require.ErrorContains(t, err, "before")

	_, err = Decode(strings.NewReader(`
steps:
  - {at: 0ms, action: poke}
`))
	require.ErrorContains(t, err, "unknown action")

	_, err = Decode(strings.NewReader(`
steps:
  - {at: 0ms, action: pressed, colour: red}
`))
	require.Error(t, err)
}

func TestVerifyReportsMissingKind(t *testing.T) {
	s, err := Decode(strings.NewReader(`
name: wheel
viewport: {resolution: 10, width: 400, height: 400}
steps:
  - {at: 0ms, action: wheel, x: 200, y: 200, wheel: 120}
  - {at: 20ms, action: tick}
expect: [zoomed, long-tap]
`))
	require.NoError(t, err)
	res, err := Run(s, mapcontrol.DefaultOptions(), 500*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []string{"zoomed"}, res.Kinds())
	require.Equal(t, "in", res.Events[0].Direction)

	err = s.Verify(res)
	require.ErrorIs(t, err, ErrUnexpected)
	require.ErrorContains(t, err, "long-tap")
}
