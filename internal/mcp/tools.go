package mcp

import (
	"context"
	"errors"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/workout"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolSelectDate = mcp.NewTool("select_date",
	mcp.WithDescription("Select the calendar day whose workouts are listed and edited. Returns the day's summary."),
	mcp.WithString("date", mcp.Required(), mcp.Description("Day in YYYY-MM-DD form")),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List the selected day's workouts, newest first, with their sets and progress."),
)

var toolAddWorkout = mcp.NewTool("add_workout",
	mcp.WithDescription("Log a workout on the selected day. One set row is created per target set, all not done."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Exercise name (e.g. 'Back Squat')")),
	mcp.WithNumber("sets", mcp.Required(), mcp.Description("Number of sets")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Target reps per set")),
	mcp.WithString("comment", mcp.Description("Free-text note")),
)

var toolToggleSet = mcp.NewTool("toggle_set",
	mcp.WithDescription("Mark one set of a workout as done or not done."),
	mcp.WithNumber("workout_id", mcp.Required(), mcp.Description("Workout id")),
	mcp.WithNumber("set_id", mcp.Required(), mcp.Description("Set id")),
	mcp.WithBoolean("done", mcp.Description("New done flag. Defaults to true.")),
)

var toolDeleteWorkout = mcp.NewTool("delete_workout",
	mcp.WithDescription("Delete a workout together with all of its sets."),
	mcp.WithNumber("workout_id", mcp.Required(), mcp.Description("Workout id")),
)

var toolGetCompletion = mcp.NewTool("get_completion",
	mcp.WithDescription("Percentage of done sets across all workouts of the selected day."),
)

// --- Tool handlers ---

func (h *handlers) selectDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError("date parameter is required"), nil
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := h.svc.SelectDate(ctx, date); err != nil {
		h.log.Error("mcp select_date", "error", err)
		return mcp.NewToolResultError("select failed: " + err.Error()), nil
	}
	return jsonResult(h.svc.Summary())
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.svc.Summary())
}

func (h *handlers) addWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name parameter is required"), nil
	}
	sets, err := req.RequireInt("sets")
	if err != nil {
		return mcp.NewToolResultError("sets must be a whole number"), nil
	}
	reps, err := req.RequireInt("reps")
	if err != nil {
		return mcp.NewToolResultError("reps must be a whole number"), nil
	}

	n := models.NewWorkout{Name: name, Sets: sets, Reps: reps, Comment: req.GetString("comment", "")}
	if err := n.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id, err := h.svc.AddWorkout(ctx, n)
	if errors.Is(err, workout.ErrReloadFailed) {
		h.log.Warn("mcp add_workout: reload failed", "id", id, "error", err)
		return jsonResult(map[string]any{
			"id":      id,
			"date":    h.svc.SelectedDate(),
			"warning": err.Error(),
		})
	}
	if err != nil {
		h.log.Error("mcp add_workout", "error", err)
		return mcp.NewToolResultError("add failed: " + err.Error()), nil
	}
	created, _ := h.svc.Sets(id)
	return jsonResult(map[string]any{
		"id":   id,
		"date": h.svc.SelectedDate(),
		"sets": created,
	})
}

func (h *handlers) toggleSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workoutID, err := req.RequireInt("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}
	setID, err := req.RequireInt("set_id")
	if err != nil {
		return mcp.NewToolResultError("set_id parameter is required"), nil
	}
	done := req.GetBool("done", true)

	if err := h.svc.ToggleSetDone(ctx, int64(workoutID), int64(setID), done); err != nil {
		h.log.Error("mcp toggle_set", "error", err)
		return mcp.NewToolResultError("toggle failed: " + err.Error()), nil
	}
	sets, _ := h.svc.Sets(int64(workoutID))
	return jsonResult(map[string]any{
		"workout_id": workoutID,
		"sets":       sets,
		"progress":   h.svc.Progress(int64(workoutID)),
	})
}

func (h *handlers) deleteWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workoutID, err := req.RequireInt("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}
	if err := h.svc.DeleteWorkout(ctx, int64(workoutID)); err != nil {
		h.log.Error("mcp delete_workout", "error", err)
		return mcp.NewToolResultError("delete failed: " + err.Error()), nil
	}
	return jsonResult(h.svc.Summary())
}

func (h *handlers) getCompletion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"date":    h.svc.SelectedDate(),
		"percent": h.svc.TotalCompletion(),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
