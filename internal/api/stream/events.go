package stream

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-mapview/internal/logging"
	"github.com/joeblew999/plat-mapview/internal/service"
)

// EventHandler streams viewport and gesture events of one session.
type EventHandler struct {
	sessions *service.SessionService
}

// NewEventHandler creates a new event handler.
func NewEventHandler(sessions *service.SessionService) *EventHandler {
	return &EventHandler{sessions: sessions}
}

type EventsInput struct {
	ID string `path:"id" doc:"Session ID"`
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/sessions/{id}/events", h.Events,
		huma.OperationTags("stream"),
	)
	h.RegisterPointer(api)
}

// Events patches Datastar signals for every change in the session:
// "viewport" after each viewport change, "gesture" for recognized events,
// "refresh" with the extent to reload, and "closed" once the session is
// deleted, which also ends the stream.
func (h *EventHandler) Events(ctx context.Context, input *EventsInput) (*huma.StreamResponse, error) {
	sess, err := h.sessions.Get(input.ID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return nil, huma.Error404NotFound("session not found")
		}
		return nil, huma.Error500InternalServerError("session lookup failed", err)
	}
	id := sess.ID()
	bus := h.sessions.Bus()

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			ch := bus.Subscribe()
			defer bus.Unsubscribe(ch)

			sse := NewSSE(humaCtx)
			info, err := sess.Info(ctx)
			if err != nil {
				sse.Error("session closed")
				return
			}
			if err := sse.Signals(map[string]any{"session": info, "viewport": info.Viewport}); err != nil {
				return
			}

			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-ch:
					if ev.Session != id {
						continue
					}
					signals, done := signalsFor(ev)
					if signals == nil {
						continue
					}
					if err := sse.Signals(signals); err != nil {
						logging.Logger().Debug("stream: client gone", "session", id, "error", err)
						return
					}
					if done {
						return
					}
				}
			}
		},
	}, nil
}

// signalsFor maps a bus event to signals. done ends the stream.
func signalsFor(ev service.Event) (signals map[string]any, done bool) {
	switch ev.Kind {
	case service.EventViewport:
		return map[string]any{"viewport": ev.Viewport}, false
	case service.EventGesture:
		return map[string]any{"gesture": ev.Gesture, "lastGesture": ev.Gesture.Kind}, false
	case service.EventRefresh:
		return map[string]any{"refresh": ev.Gesture.Extent}, false
	case service.EventSession:
		if ev.Action == "deleted" {
			return map[string]any{"closed": true}, true
		}
	}
	return nil, false
}
