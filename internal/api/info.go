package api

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-mapview/internal/gesture"
	"github.com/joeblew999/plat-mapview/internal/touch"
)

type InfoHandler struct {
	version       string
	frameInterval time.Duration
	gesture       gesture.Config
}

func NewInfoHandler(version string, frameInterval time.Duration, cfg gesture.Config) *InfoHandler {
	return &InfoHandler{version: version, frameInterval: frameInterval, gesture: cfg}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type TimingInfo struct {
	TapMax         string `json:"tapMax" doc:"Longest press that still counts as a tap" example:"500ms"`
	LongTap        string `json:"longTap" doc:"Shortest press that counts as a long tap" example:"500ms"`
	DoubleTapDelay string `json:"doubleTapDelay" doc:"Wait for a further tap" example:"200ms"`
}

type GestureInfo struct {
	UnSnapRotation float64               `json:"unSnapRotation" doc:"Degrees a pinch must rotate before rotation follows"`
	ReSnapRotation float64               `json:"reSnapRotation" doc:"Degrees within which rotation snaps back to north"`
	TapSlop        float64               `json:"tapSlop" doc:"Pixels a tap may move"`
	FlingVelocity  float64               `json:"flingVelocity" doc:"Release speed above which a fling starts (px/s)"`
	SwipeVelocity  float64               `json:"swipeVelocity" doc:"Release speed above which a swipe is reported (px/s)"`
	FlingDuration  string                `json:"flingDuration" doc:"Longest kinetic pan"`
	UseDoubleTap   bool                  `json:"useDoubleTap" doc:"Whether taps wait for a double tap"`
	Timings        map[string]TimingInfo `json:"timings" doc:"Tap timing per pointer device"`
}

type InfoBody struct {
	Name          string      `json:"name" doc:"Service name"`
	Version       string      `json:"version" doc:"Service version"`
	FrameInterval string      `json:"frameInterval" doc:"Animation frame interval" example:"16ms"`
	Gesture       GestureInfo `json:"gesture" doc:"Gesture recognition settings"`
	Features      []string    `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	g := h.gesture
	timings := make(map[string]TimingInfo)
	for _, d := range []touch.Device{touch.DeviceTouch, touch.DeviceMouse, touch.DevicePen} {
		t := g.Timing(d)
		timings[d.String()] = TimingInfo{
			TapMax:         t.TapMax.String(),
			LongTap:        t.LongTap.String(),
			DoubleTapDelay: t.DoubleTapDelay.String(),
		}
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:          "plat-mapview",
		Version:       h.version,
		FrameInterval: h.frameInterval.String(),
		Gesture: GestureInfo{
			UnSnapRotation: g.UnSnapRotation,
			ReSnapRotation: g.ReSnapRotation,
			TapSlop:        g.TapSlop,
			FlingVelocity:  g.FlingVelocity,
			SwipeVelocity:  g.SwipeVelocity,
			FlingDuration:  g.FlingDuration.String(),
			UseDoubleTap:   g.UseDoubleTap,
			Timings:        timings,
		},
		Features: []string{"sessions", "touch-input", "gestures", "animations", "sse"},
	}}, nil
}
