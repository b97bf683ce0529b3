package viewport

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func TestScreenWorldRoundTrip(t *testing.T) {
	for _, rot := range []float64{0, 30, -90, 180} {
		v := Viewport{Center: orb.Point{1000, 2000}, Resolution: 2.5, Rotation: rot, Width: 400, Height: 300}
		for _, p := range []orb.Point{{0, 0}, {200, 150}, {399, 12}, {-50, 700}} {
			back := v.WorldToScreen(v.ScreenToWorld(p))
			require.InDelta(t, p.X(), back.X(), 1e-9, "rotation %v", rot)
			require.InDelta(t, p.Y(), back.Y(), 1e-9, "rotation %v", rot)
		}
	}
}

func TestScreenCenterMapsToCenter(t *testing.T) {
	v := Viewport{Center: orb.Point{5, 7}, Resolution: 3, Rotation: 45, Width: 100, Height: 50}
	w := v.ScreenToWorld(v.ScreenCenter())
	require.InDelta(t, 5.0, w.X(), 1e-12)
	require.InDelta(t, 7.0, w.Y(), 1e-12)
}

func TestScreenYPointsDown(t *testing.T) {
	v := Viewport{Center: orb.Point{0, 0}, Resolution: 1, Width: 100, Height: 100}
	below := v.ScreenToWorld(orb.Point{50, 60})
	require.Less(t, below.Y(), 0.0)
}

func TestExtent(t *testing.T) {
	v := Viewport{Center: orb.Point{0, 0}, Resolution: 2, Width: 100, Height: 50}
	b := v.Extent()
	require.InDelta(t, -100.0, b.Min.X(), 1e-9)
	require.InDelta(t, 100.0, b.Max.X(), 1e-9)
	require.InDelta(t, -50.0, b.Min.Y(), 1e-9)
	require.InDelta(t, 50.0, b.Max.Y(), 1e-9)

	v.Rotation = 90
	b = v.Extent()
	require.InDelta(t, -50.0, b.Min.X(), 1e-9)
	require.InDelta(t, 100.0, b.Max.Y(), 1e-9)
}

func TestNormalizeRotation(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		180:  180,
		-180: 180,
		190:  -170,
		-190: 170,
		540:  180,
		725:  5,
		-360: 0,
	}
	for in, want := range cases {
		got := NormalizeRotation(in)
		if got != want {
			t.Fatalf("NormalizeRotation(%v)=%v, want %v", in, got, want)
		}
	}
}

func TestHasSize(t *testing.T) {
	require.False(t, Viewport{}.HasSize())
	require.False(t, Viewport{Width: 10}.HasSize())
	require.True(t, Viewport{Width: 10, Height: 1}.HasSize())
}
