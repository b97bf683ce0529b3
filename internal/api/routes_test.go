package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapview/internal/gesture"
	"github.com/joeblew999/plat-mapview/internal/mapcontrol"
	"github.com/joeblew999/plat-mapview/internal/navigator"
	"github.com/joeblew999/plat-mapview/internal/service"
	"github.com/joeblew999/plat-mapview/internal/viewport"
)

func newTestAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	base := mapcontrol.DefaultOptions()
	base.Navigation = navigator.Options{}
	base.Limits = navigator.Limits{MinResolution: 0.1, MaxResolution: 1000}
	base.Viewport = viewport.Viewport{Resolution: 10}
	svc := service.NewSessionService(base, 5*time.Millisecond, nil)
	t.Cleanup(svc.Close)

	cfg := huma.DefaultConfig("test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, LinkTransformer())
	_, api := humatest.New(t, cfg)
	RegisterRoutes(api, &Services{Session: svc})
	NewInfoHandler("1.0.0", 16*time.Millisecond, gesture.DefaultConfig()).RegisterRoutes(api)
	return api
}

func createSession(t *testing.T, api humatest.TestAPI) service.SessionInfo {
	t.Helper()
	resp := api.Post("/api/v1/sessions", map[string]any{"width": 400, "height": 400})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var info service.SessionInfo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &info))
	require.Equal(t, "/api/v1/sessions/"+info.ID, resp.Header().Get("Location"))
	return info
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"status":"ok"`)
	require.Contains(t, resp.Header().Values("Link"), `</api/v1/sessions>; rel="sessions"`)
}

func TestInfo(t *testing.T) {
	api := newTestAPI(t)
	resp := api.Get("/api/v1/info")
	require.Equal(t, http.StatusOK, resp.Code)

	var body InfoBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "plat-mapview", body.Name)
	require.Equal(t, "16ms", body.FrameInterval)
	require.Equal(t, 30.0, body.Gesture.UnSnapRotation)
	require.Equal(t, "125ms", body.Gesture.Timings["mouse"].DoubleTapDelay)
	require.Equal(t, "200ms", body.Gesture.Timings["pen"].DoubleTapDelay)
}

func TestSessionCRUD(t *testing.T) {
	api := newTestAPI(t)
	info := createSession(t, api)
	require.Equal(t, 400.0, info.Viewport.Width)
	require.Equal(t, "idle", info.State)

	resp := api.Get("/api/v1/sessions")
	require.Equal(t, http.StatusOK, resp.Code)
	var list []service.SessionInfo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list, 1)

	resp = api.Get("/api/v1/sessions/" + info.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	links := resp.Header().Values("Link")
	require.Contains(t, links, `</api/v1/sessions>; rel="collection"`)
	require.Contains(t, links, `</api/v1/sessions/`+info.ID+`/touches>; rel="touches"`)

	resp = api.Delete("/api/v1/sessions/" + info.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.Get("/api/v1/sessions/" + info.ID)
	require.Equal(t, http.StatusNotFound, resp.Code)
	resp = api.Delete("/api/v1/sessions/" + info.ID)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTouchesPan(t *testing.T) {
	api := newTestAPI(t)
	info := createSession(t, api)
	path := "/api/v1/sessions/" + info.ID

	resp := api.Post(path+"/touches", map[string]any{"inputs": []map[string]any{
		{"action": "pressed", "id": 1, "x": 100, "y": 100},
		{"action": "moved", "id": 1, "x": 150, "y": 100},
	}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var res TouchesResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	require.Equal(t, "dragging", res.Session.Mode)
	require.Equal(t, 1, res.Session.Touches)
	require.InDelta(t, -500.0, res.Session.Viewport.Center.X(), 1e-9)

	resp = api.Post(path+"/touches", map[string]any{"inputs": []map[string]any{
		{"action": "released", "id": 1, "x": 150, "y": 100},
	}})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	require.Zero(t, res.Session.Touches)
	require.Equal(t, "none", res.Session.Mode)
}

func TestTouchesRejectsBadInput(t *testing.T) {
	api := newTestAPI(t)
	info := createSession(t, api)
	path := "/api/v1/sessions/" + info.ID + "/touches"

	resp := api.Post(path, map[string]any{"inputs": []map[string]any{{"action": "poke"}}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = api.Post(path, map[string]any{"inputs": []map[string]any{
		{"action": "pressed", "id": 1, "offsetMs": 30},
		{"action": "released", "id": 1, "offsetMs": 10},
	}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.Contains(t, resp.Body.String(), "back in time")

	resp = api.Post("/api/v1/sessions/missing/touches", map[string]any{"inputs": []map[string]any{{"action": "pressed"}}})
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestNavigate(t *testing.T) {
	api := newTestAPI(t)
	info := createSession(t, api)
	path := "/api/v1/sessions/" + info.ID

	var out service.SessionInfo
	resp := api.Post(path+"/navigate", map[string]any{"action": "zoom-in"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.InDelta(t, 5.0, out.Viewport.Resolution, 1e-9)

	resp = api.Post(path+"/navigate", map[string]any{"action": "rotate-to", "rotation": 90})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.InDelta(t, 90.0, out.Viewport.Rotation, 1e-9)

	resp = api.Post(path+"/navigate", map[string]any{"action": "navigate-to", "point": []float64{1000, 2000}, "resolution": 20})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.InDelta(t, 1000.0, out.Viewport.Center.X(), 1e-9)
	require.InDelta(t, 2000.0, out.Viewport.Center.Y(), 1e-9)
	require.InDelta(t, 20.0, out.Viewport.Resolution, 1e-9)

	resp = api.Post(path+"/navigate", map[string]any{"action": "center-on-lonlat", "lon": 0, "lat": 0})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.InDelta(t, 0.0, out.Viewport.Center.X(), 1e-6)

	resp = api.Post(path+"/navigate", map[string]any{"action": "zoom-to"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = api.Post(path+"/navigate", map[string]any{"action": "teleport"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = api.Post(path+"/navigate", map[string]any{"action": "fling", "vx": 1000})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.True(t, out.Animating)

	resp = api.Post(path+"/navigate", map[string]any{"action": "stop"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.False(t, out.Animating)
}

func TestViewportSizeLimits(t *testing.T) {
	api := newTestAPI(t)
	info := createSession(t, api)
	path := "/api/v1/sessions/" + info.ID

	resp := api.Put(path+"/size", map[string]any{"width": 800, "height": 600})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.Put(path+"/limits", map[string]any{
		"minResolution": 20, "maxResolution": 100, "panLock": false, "zoomLock": true, "rotationLock": false,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = api.Put(path+"/limits", map[string]any{
		"minResolution": 200, "maxResolution": 100, "panLock": false, "zoomLock": false, "rotationLock": false,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = api.Get(path + "/viewport")
	require.Equal(t, http.StatusOK, resp.Code)
	var vp service.ViewportState
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &vp))
	require.Equal(t, 800.0, vp.Width)
	require.InDelta(t, 20.0, vp.Resolution, 1e-9)
	require.NotZero(t, vp.Extent[2]-vp.Extent[0])

	resp = api.Post(path + "/tick")
	require.Equal(t, http.StatusOK, resp.Code)
	var tick TickResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tick))
	require.False(t, tick.Changed)
}
