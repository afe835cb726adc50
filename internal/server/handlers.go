package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/workout"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.GetDataStats(r.Context())
	if err != nil {
		s.log.Error("health stats", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  stats,
	})
}

func (s *Server) handleGetDate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]models.Date{"date": s.svc.SelectedDate()})
}

func (s *Server) handleSelectDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.svc.SelectDate(r.Context(), date); err != nil {
		s.log.Error("select date", "date", date, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Summary())
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Summary())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reload(r.Context()); err != nil {
		s.log.Error("reload", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Summary())
}

func (s *Server) handleAddWorkout(w http.ResponseWriter, r *http.Request) {
	var req models.NewWorkout
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	id, err := s.svc.AddWorkout(r.Context(), req)
	if errors.Is(err, workout.ErrReloadFailed) {
		// Created; report it so the client does not retry into a duplicate.
		s.log.Warn("add workout: reload failed", "id", id, "error", err)
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":      id,
			"sets":    []models.WorkoutSet{},
			"warning": err.Error(),
		})
		return
	}
	if err != nil {
		s.log.Error("add workout", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	sets, _ := s.svc.Sets(id)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":   id,
		"sets": sets,
	})
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	err := s.svc.DeleteWorkout(r.Context(), id)
	if errors.Is(err, workout.ErrReloadFailed) {
		s.log.Warn("delete workout: reload failed", "id", id, "error", err)
		err = nil
	}
	if err != nil {
		s.log.Error("delete workout", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSets(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	sets, found := s.svc.Sets(id)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not loaded for the selected date"})
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workout_id": id,
		"progress":   s.svc.Progress(id),
	})
}

func (s *Server) handleToggleSet(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	setID, ok := parseID(w, r, "setID")
	if !ok {
		return
	}
	var req struct {
		Done *bool `json:"done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Done == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "done is required"})
		return
	}

	if err := s.svc.ToggleSetDone(r.Context(), workoutID, setID, *req.Done); err != nil {
		s.log.Error("toggle set", "workout_id", workoutID, "set_id", setID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	sets, _ := s.svc.Sets(workoutID)
	writeJSON(w, http.StatusOK, map[string]any{
		"workout_id": workoutID,
		"sets":       sets,
		"progress":   s.svc.Progress(workoutID),
	})
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"date":    s.svc.SelectedDate(),
		"percent": s.svc.TotalCompletion(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

var errBadID = errors.New("invalid id")

func parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errBadID.Error() + ": " + param})
		return 0, false
	}
	return id, true
}
