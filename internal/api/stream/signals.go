package stream

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-mapview/internal/service"
)

// Signals provides typed access to Datastar signal values.
// Datastar sends all signals as a flat JSON object in the request body.
// Signal names are lowercase due to data-bind behavior.
type Signals map[string]any

// ParseSignals parses Datastar signals from a raw request body.
func ParseSignals(body []byte) (Signals, error) {
	var signals Signals
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns a string signal value, or empty string if not found.
func (s Signals) String(key string) string {
	if v, ok := s[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// Int returns an int signal value, or 0 if not found.
func (s Signals) Int(key string) int {
	if v, ok := s[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return 0
}

// Float returns a float64 signal value, or 0 if not found.
func (s Signals) Float(key string) float64 {
	if v, ok := s[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}

// Wheel returns a wheel delta signal, rounding fractional trackpad deltas
// away from zero.
func (s Signals) Wheel(key string) int {
	f := s.Float(key)
	return int(math.Copysign(math.Ceil(math.Abs(f)), f))
}

// Bool returns a bool signal value, or false if not found.
func (s Signals) Bool(key string) bool {
	if v, ok := s[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Input converts pointer signals to one control input. The signals are
// action, id, x, y, device, hover and wheel.
func (s Signals) Input() service.Input {
	return service.Input{
		Action:     s.String("action"),
		ID:         int64(s.Int("id")),
		X:          s.Float("x"),
		Y:          s.Float("y"),
		Device:     s.String("device"),
		Hover:      s.Bool("hover"),
		WheelDelta: s.Wheel("wheel"),
	}
}

type PointerInput struct {
	ID      string `path:"id" doc:"Session ID"`
	RawBody []byte
}

// RegisterPointer registers the Datastar pointer endpoint, letting a page
// bound with data-on-pointer* attributes drive a session directly.
func (h *EventHandler) RegisterPointer(api huma.API) {
	huma.Post(api, "/api/v1/sessions/{id}/pointer", h.Pointer,
		huma.OperationTags("stream"),
	)
}

// Pointer feeds one pointer event from Datastar signals and answers with
// the updated session signals.
func (h *EventHandler) Pointer(ctx context.Context, input *PointerInput) (*huma.StreamResponse, error) {
	sess, err := h.sessions.Get(input.ID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return nil, huma.Error404NotFound("session not found")
		}
		return nil, huma.Error500InternalServerError("session lookup failed", err)
	}
	signals, err := ParseSignals(input.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSE(humaCtx)
			handled, info, err := sess.Input(ctx, []service.Input{signals.Input()})
			if err != nil {
				sse.Error(err.Error())
				return
			}
			sse.Signals(map[string]any{
				"handled":  handled > 0,
				"session":  info,
				"viewport": info.Viewport,
			})
		},
	}, nil
}
