package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/workout"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Service is the part of *workout.Service the MCP tools use.
type Service interface {
	SelectedDate() models.Date
	SelectDate(ctx context.Context, date models.Date) error
	AddWorkout(ctx context.Context, n models.NewWorkout) (int64, error)
	DeleteWorkout(ctx context.Context, id int64) error
	ToggleSetDone(ctx context.Context, workoutID, setID int64, done bool) error
	Sets(workoutID int64) ([]models.WorkoutSet, bool)
	Progress(workoutID int64) float64
	TotalCompletion() int
	Summary() workout.Summary
}

// Compile-time check: *workout.Service satisfies Service.
var _ Service = (*workout.Service)(nil)

// New creates an MCP server with all tools and resources registered.
func New(svc Service, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("setlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("setlog workout log. One calendar day is selected at a time; list, add and delete workouts on it and tick off individual sets."),
	)

	h := &handlers{svc: svc, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolSelectDate, Handler: h.selectDate},
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolAddWorkout, Handler: h.addWorkout},
		server.ServerTool{Tool: toolToggleSet, Handler: h.toggleSet},
		server.ServerTool{Tool: toolDeleteWorkout, Handler: h.deleteWorkout},
		server.ServerTool{Tool: toolGetCompletion, Handler: h.getCompletion},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resSelectedDay, Handler: h.selectedDay},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	svc Service
	log *slog.Logger
}

var resSelectedDay = mcp.NewResource(
	"setlog://today",
	"Selected Day",
	mcp.WithResourceDescription("Workouts of the selected day with their sets, per-workout progress and the day's completion percentage"),
	mcp.WithMIMEType("application/json"),
)
