// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapview/internal/mapcontrol"
	"github.com/joeblew999/plat-mapview/internal/navigator"
	"github.com/joeblew999/plat-mapview/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Session *service.SessionService
}

// Navigation actions accepted by the navigate endpoint.
const (
	NavZoomIn       = "zoom-in"
	NavZoomOut      = "zoom-out"
	NavZoomTo       = "zoom-to"
	NavZoomToLevel  = "zoom-to-level"
	NavRotateTo     = "rotate-to"
	NavCenterOn     = "center-on"
	NavCenterLonLat = "center-on-lonlat"
	NavNavigateTo   = "navigate-to"
	NavFling        = "fling"
	NavStop         = "stop"
)

// Types

type IDInput struct {
	ID string `path:"id" doc:"Session ID" example:"2f1e0c9a-3d7b-4c55-9a51-4f8a2b7d9e10"`
}

type SessionOutput struct {
	Body service.SessionInfo
}

type SessionsOutput struct {
	Body []service.SessionInfo
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type CreateSessionOutput struct {
	Location string `header:"Location" doc:"URL of the created session"`
	Body     service.SessionInfo
}

type TouchesBody struct {
	Inputs []service.Input `json:"inputs" minItems:"1" doc:"Pointer events in time order"`
}

type TouchesResult struct {
	Handled int                 `json:"handled" doc:"Inputs consumed by the control"`
	Session service.SessionInfo `json:"session" doc:"Session state after the batch"`
}

type TickResult struct {
	Changed bool                `json:"changed" doc:"Whether the frame moved the viewport"`
	Session service.SessionInfo `json:"session" doc:"Session state after the frame"`
}

type SizeBody struct {
	Width  float64 `json:"width" minimum:"0" doc:"Screen width in pixels" example:"800"`
	Height float64 `json:"height" minimum:"0" doc:"Screen height in pixels" example:"600"`
}

// NavigateBody is one programmatic navigation request. Fields not used by
// the action are ignored.
type NavigateBody struct {
	Action     string      `json:"action" enum:"zoom-in,zoom-out,zoom-to,zoom-to-level,rotate-to,center-on,center-on-lonlat,navigate-to,fling,stop" doc:"Navigation action"`
	Point      *[2]float64 `json:"point,omitempty" doc:"Screen pivot for zoom-in/zoom-out (defaults to the screen center), or world point for center-on/navigate-to"`
	Resolution float64     `json:"resolution,omitempty" minimum:"0" doc:"Target resolution for zoom-to/navigate-to"`
	Level      *float64    `json:"level,omitempty" doc:"Zoom level for zoom-to-level, or instead of resolution for navigate-to"`
	Rotation   float64     `json:"rotation,omitempty" doc:"Target rotation in degrees for rotate-to"`
	Lon        float64     `json:"lon,omitempty" minimum:"-180" maximum:"180" doc:"Longitude for center-on-lonlat"`
	Lat        float64     `json:"lat,omitempty" minimum:"-85.0511" maximum:"85.0511" doc:"Latitude for center-on-lonlat"`
	VelocityX  float64     `json:"vx,omitempty" doc:"Fling velocity x in px/s"`
	VelocityY  float64     `json:"vy,omitempty" doc:"Fling velocity y in px/s"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST operation on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterSessions registers session CRUD routes.
func (h *APIHandler) RegisterSessions(api huma.API) {
	huma.Get(api, "/api/v1/sessions", h.ListSessions, huma.OperationTags("sessions"))
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions",
		Summary:       "Create session",
		Tags:          []string{"sessions"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateSession)
	huma.Get(api, "/api/v1/sessions/{id}", h.GetSession, huma.OperationTags("sessions"))
	huma.Delete(api, "/api/v1/sessions/{id}", h.DeleteSession, huma.OperationTags("sessions"))
}

// RegisterControl registers the per-session control routes.
func (h *APIHandler) RegisterControl(api huma.API) {
	huma.Post(api, "/api/v1/sessions/{id}/touches", h.PostTouches, huma.OperationTags("control"))
	huma.Post(api, "/api/v1/sessions/{id}/tick", h.PostTick, huma.OperationTags("control"))
	huma.Post(api, "/api/v1/sessions/{id}/navigate", h.PostNavigate, huma.OperationTags("control"))
	huma.Get(api, "/api/v1/sessions/{id}/viewport", h.GetViewport, huma.OperationTags("control"))
	huma.Put(api, "/api/v1/sessions/{id}/size", h.PutSize, huma.OperationTags("control"))
	huma.Put(api, "/api/v1/sessions/{id}/limits", h.PutLimits, huma.OperationTags("control"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) ListSessions(ctx context.Context, input *struct{}) (*SessionsOutput, error) {
	if h.svc == nil || h.svc.Session == nil {
		return &SessionsOutput{Body: []service.SessionInfo{}}, nil
	}
	list, err := h.svc.Session.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list sessions", err)
	}
	return &SessionsOutput{Body: list}, nil
}

func (h *APIHandler) CreateSession(ctx context.Context, input *struct {
	Body service.SessionOptions
}) (*CreateSessionOutput, error) {
	if h.svc == nil || h.svc.Session == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	info, err := h.svc.Session.Create(ctx, input.Body)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to create session", err)
	}
	return &CreateSessionOutput{Location: "/api/v1/sessions/" + info.ID, Body: info}, nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *IDInput) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	info, err := sess.Info(ctx)
	if err != nil {
		return nil, sessionError(err)
	}
	return &SessionOutput{Body: info}, nil
}

func (h *APIHandler) DeleteSession(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Session == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	if err := h.svc.Session.Delete(input.ID); err != nil {
		return nil, sessionError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Session deleted"}}, nil
}

func (h *APIHandler) PostTouches(ctx context.Context, input *struct {
	IDInput
	Body TouchesBody
}) (*struct{ Body TouchesResult }, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	handled, info, err := sess.Input(ctx, input.Body.Inputs)
	if err != nil {
		return nil, sessionError(err)
	}
	return &struct{ Body TouchesResult }{Body: TouchesResult{Handled: handled, Session: info}}, nil
}

func (h *APIHandler) PostTick(ctx context.Context, input *IDInput) (*struct{ Body TickResult }, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	changed, info, err := sess.Tick(ctx)
	if err != nil {
		return nil, sessionError(err)
	}
	return &struct{ Body TickResult }{Body: TickResult{Changed: changed, Session: info}}, nil
}

func (h *APIHandler) PostNavigate(ctx context.Context, input *struct {
	IDInput
	Body NavigateBody
}) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	b := input.Body

	var info service.SessionInfo
	switch b.Action {
	case NavFling:
		info, err = sess.Fling(ctx, b.VelocityX, b.VelocityY)
	default:
		var fn func(*navigator.Navigator)
		fn, err = navigation(b)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		info, err = sess.Navigate(ctx, fn)
	}
	if err != nil {
		return nil, sessionError(err)
	}
	return &SessionOutput{Body: info}, nil
}

func (h *APIHandler) GetViewport(ctx context.Context, input *IDInput) (*struct{ Body service.ViewportState }, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	info, err := sess.Info(ctx)
	if err != nil {
		return nil, sessionError(err)
	}
	return &struct{ Body service.ViewportState }{Body: info.Viewport}, nil
}

func (h *APIHandler) PutSize(ctx context.Context, input *struct {
	IDInput
	Body SizeBody
}) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	info, err := sess.SetSize(ctx, input.Body.Width, input.Body.Height)
	if err != nil {
		return nil, sessionError(err)
	}
	return &SessionOutput{Body: info}, nil
}

func (h *APIHandler) PutLimits(ctx context.Context, input *struct {
	IDInput
	Body navigator.Limits
}) (*SessionOutput, error) {
	l := input.Body
	if l.MinResolution > 0 && l.MaxResolution > 0 && l.MinResolution > l.MaxResolution {
		return nil, huma.Error422UnprocessableEntity("minResolution exceeds maxResolution")
	}
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	info, err := sess.SetLimits(ctx, l)
	if err != nil {
		return nil, sessionError(err)
	}
	return &SessionOutput{Body: info}, nil
}

func (h *APIHandler) session(id string) (*service.Session, error) {
	if h.svc == nil || h.svc.Session == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	sess, err := h.svc.Session.Get(id)
	if err != nil {
		return nil, sessionError(err)
	}
	return sess, nil
}

// sessionError maps service errors to HTTP errors.
func sessionError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, mapcontrol.ErrLoopStopped):
		return huma.Error404NotFound("session not found")
	case errors.Is(err, service.ErrInvalidInput):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("session busy", err)
	}
	return huma.Error500InternalServerError("session error", err)
}

// navigation turns a request into a navigator call.
func navigation(b NavigateBody) (func(*navigator.Navigator), error) {
	point := func(n *navigator.Navigator) orb.Point {
		if b.Point == nil {
			return n.Viewport().ScreenCenter()
		}
		return orb.Point(*b.Point)
	}
	switch b.Action {
	case NavZoomIn:
		return func(n *navigator.Navigator) { n.ZoomIn(point(n)) }, nil
	case NavZoomOut:
		return func(n *navigator.Navigator) { n.ZoomOut(point(n)) }, nil
	case NavZoomTo:
		if b.Resolution <= 0 {
			return nil, fmt.Errorf("%s needs a positive resolution", b.Action)
		}
		return func(n *navigator.Navigator) { n.ZoomTo(b.Resolution) }, nil
	case NavZoomToLevel:
		if b.Level == nil {
			return nil, fmt.Errorf("%s needs a level", b.Action)
		}
		return func(n *navigator.Navigator) { n.ZoomToLevel(*b.Level) }, nil
	case NavRotateTo:
		return func(n *navigator.Navigator) { n.RotateTo(b.Rotation) }, nil
	case NavCenterOn:
		if b.Point == nil {
			return nil, fmt.Errorf("%s needs a world point", b.Action)
		}
		return func(n *navigator.Navigator) { n.CenterOn(orb.Point(*b.Point)) }, nil
	case NavCenterLonLat:
		return func(n *navigator.Navigator) { n.CenterOnLonLat(b.Lon, b.Lat) }, nil
	case NavNavigateTo:
		if b.Point == nil {
			return nil, fmt.Errorf("%s needs a world point", b.Action)
		}
		switch {
		case b.Level != nil:
			return func(n *navigator.Navigator) { n.NavigateToLevel(orb.Point(*b.Point), *b.Level) }, nil
		case b.Resolution > 0:
			return func(n *navigator.Navigator) { n.NavigateTo(orb.Point(*b.Point), b.Resolution) }, nil
		}
		return nil, fmt.Errorf("%s needs a resolution or level", b.Action)
	case NavStop:
		return func(n *navigator.Navigator) { n.StopRunningAnimation() }, nil
	}
	return nil, fmt.Errorf("unknown action %q", b.Action)
}
