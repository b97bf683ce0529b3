package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-mapview/internal/api"
	"github.com/joeblew999/plat-mapview/internal/api/stream"
	"github.com/joeblew999/plat-mapview/internal/mapcontrol"
	"github.com/joeblew999/plat-mapview/internal/service"
)

// Version of the HTTP API.
const Version = "1.0.0"

// Config holds the server configuration.
type Config struct {
	Host string
	Port string
	// Control is the template for every session's map control.
	Control mapcontrol.Options
	// FrameInterval paces animation frames of running sessions.
	FrameInterval time.Duration
}

// Server is the map control HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	services *api.Services
}

// New creates a new map control server.
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-mapview API", Version)
	humaConfig.Info.Description = "Hosted map controls: feed pointer input, receive gestures and viewport changes."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	services := &api.Services{
		Session: service.NewSessionService(cfg.Control, cfg.FrameInterval, service.NewEventBus()),
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		services: services,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions returns the session service.
func (s *Server) Sessions() *service.SessionService {
	return s.services.Session
}

// Close stops every session.
func (s *Server) Close() error {
	s.services.Session.Close()
	return nil
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(Version, s.services.Session.FrameInterval(), s.config.Control.Gesture).RegisterRoutes(s.humaAPI)

	// Datastar SSE stream of session events
	stream.NewEventHandler(s.services.Session).RegisterRoutes(s.humaAPI)

	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-mapview",
		"status":  "running",
		"docs":    "/docs",
	})
}
