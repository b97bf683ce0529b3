// Package service hosts map control sessions for the HTTP API.
package service

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapview/internal/gesture"
	"github.com/joeblew999/plat-mapview/internal/navigator"
	"github.com/joeblew999/plat-mapview/internal/viewport"
)

// SessionInfo describes a hosted control.
type SessionInfo struct {
	ID        string        `json:"id" doc:"Session ID" example:"2f1e0c9a-3d7b-4c55-9a51-4f8a2b7d9e10"`
	CreatedAt time.Time     `json:"createdAt" doc:"Creation time"`
	Viewport  ViewportState `json:"viewport" doc:"Current viewport"`
	State     string        `json:"state" doc:"Gesture state" enum:"idle,awaiting-release,awaiting-double-tap"`
	Mode      string        `json:"mode" doc:"Interaction mode" enum:"none,dragging,zooming"`
	Touches   int           `json:"touches" doc:"Active touch count"`
	Animating bool          `json:"animating" doc:"Whether an animation is running"`
}

// SessionOptions customizes a new session. Zero fields use the server
// configuration.
type SessionOptions struct {
	Width    float64           `json:"width,omitempty" minimum:"0" doc:"Screen width in pixels" example:"800"`
	Height   float64           `json:"height,omitempty" minimum:"0" doc:"Screen height in pixels" example:"600"`
	Lon      *float64          `json:"lon,omitempty" minimum:"-180" maximum:"180" doc:"Initial center longitude"`
	Lat      *float64          `json:"lat,omitempty" minimum:"-85.0511" maximum:"85.0511" doc:"Initial center latitude"`
	Level    *float64          `json:"level,omitempty" minimum:"0" maximum:"24" doc:"Initial zoom level"`
	Rotation float64           `json:"rotation,omitempty" doc:"Initial rotation in degrees"`
	Limits   *navigator.Limits `json:"limits,omitempty" doc:"Navigation limits and locks"`
}

// ViewportState is a viewport with derived values for clients.
type ViewportState struct {
	viewport.Viewport
	Level  float64    `json:"level" doc:"Fractional web-mercator zoom level"`
	LonLat [2]float64 `json:"lonLat" doc:"Center as longitude, latitude"`
	Extent [4]float64 `json:"extent" doc:"Visible world bound: minX, minY, maxX, maxY"`
}

// NewViewportState derives client values from v.
func NewViewportState(v viewport.Viewport) ViewportState {
	ll := navigator.MercatorToLonLat(v.Center)
	s := ViewportState{
		Viewport: v,
		Level:    navigator.ResolutionLevel(v.Resolution),
		LonLat:   [2]float64{ll.Lon(), ll.Lat()},
	}
	if v.HasSize() {
		e := v.Extent()
		s.Extent = [4]float64{e.Min.X(), e.Min.Y(), e.Max.X(), e.Max.Y()}
	}
	return s
}

// GestureEvent is a recognized gesture as sent to clients.
type GestureEvent struct {
	Kind      string       `json:"kind" doc:"Gesture kind" example:"double-tap"`
	Points    [][2]float64 `json:"points,omitempty" doc:"Active touch locations"`
	Point     *[2]float64  `json:"point,omitempty" doc:"Gesture location in pixels"`
	Released  *[2]float64  `json:"released,omitempty" doc:"Lifted touch location"`
	NumTaps   int          `json:"numTaps,omitempty" doc:"Tap count"`
	VelocityX float64      `json:"vx,omitempty" doc:"Release velocity x in px/s"`
	VelocityY float64      `json:"vy,omitempty" doc:"Release velocity y in px/s"`
	Direction string       `json:"direction,omitempty" doc:"Zoom direction" enum:"in,out"`
	Extent    *[4]float64  `json:"extent,omitempty" doc:"Requested data extent (refresh events)"`
	At        time.Time    `json:"at" doc:"Server time of the event"`
}

// NewGestureEvent converts a recognizer event.
func NewGestureEvent(e gesture.Event, at time.Time) GestureEvent {
	g := GestureEvent{
		Kind:      e.Kind.String(),
		NumTaps:   e.NumTaps,
		VelocityX: e.VelocityX,
		VelocityY: e.VelocityY,
		Direction: e.Direction.String(),
		At:        at,
	}
	for _, p := range e.Points {
		g.Points = append(g.Points, [2]float64{p.X(), p.Y()})
	}
	switch e.Kind {
	case gesture.TouchStarted, gesture.TouchMoved, gesture.TouchEntered:
	case gesture.TouchEnded, gesture.TouchExited:
		g.Released = pointPtr(e.Released)
	default:
		g.Point = pointPtr(e.Point)
	}
	return g
}

func pointPtr(p orb.Point) *[2]float64 {
	v := [2]float64{p.X(), p.Y()}
	return &v
}

// Input is one raw pointer event sent by a client.
type Input struct {
	Action string  `json:"action" enum:"pressed,moved,released,cancelled,entered,exited,wheel" doc:"Pointer action"`
	ID     int64   `json:"id,omitempty" doc:"Touch ID, stable for one contact"`
	X      float64 `json:"x,omitempty" doc:"Screen x in pixels"`
	Y      float64 `json:"y,omitempty" doc:"Screen y in pixels"`
	// OffsetMs places the event relative to the batch arrival. Events in a
	// batch must not go back in time.
	OffsetMs   int64  `json:"offsetMs,omitempty" minimum:"0" doc:"Milliseconds after the batch arrival"`
	Device     string `json:"device,omitempty" enum:"touch,mouse,pen" default:"touch" doc:"Pointer device"`
	Hover      bool   `json:"hover,omitempty" doc:"Move without contact (mouse hover)"`
	WheelDelta int    `json:"wheelDelta,omitempty" doc:"Wheel delta, positive zooms in"`
}
