package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/setlog/internal/storage"
	"github.com/claude/setlog/internal/workout"
	"github.com/go-chi/chi/v5"
)

// StatsSource reports store row counts for the health endpoint.
type StatsSource interface {
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc    *workout.Service
	stats  StatsSource
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured. An empty apiKey
// leaves the mutating endpoints open.
func New(svc *workout.Service, stats StatsSource, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		stats:  stats,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestID)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/date", s.handleGetDate)
		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/{id}/sets", s.handleGetSets)
		r.Get("/workouts/{id}/progress", s.handleGetProgress)
		r.Get("/completion", s.handleCompletion)
		r.Get("/events", s.handleEvents)

		// Mutations (API key required when configured)
		r.Group(func(r chi.Router) {
			if s.apiKey != "" {
				r.Use(APIKeyAuth(s.apiKey))
			}
			r.Put("/date", s.handleSelectDate)
			r.Post("/workouts", s.handleAddWorkout)
			r.Delete("/workouts/{id}", s.handleDeleteWorkout)
			r.Patch("/workouts/{id}/sets/{setID}", s.handleToggleSet)
			r.Post("/reload", s.handleReload)
		})
	})
}

// MountMCP serves an MCP streamable-HTTP handler at /mcp, behind the API key
// when one is configured.
func (s *Server) MountMCP(h http.Handler) {
	if s.apiKey != "" {
		h = APIKeyAuth(s.apiKey)(h)
	}
	s.router.Handle("/mcp", h)
}
