package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/claude/setlog/internal/workout"
)

// handleEvents streams service change notifications as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan workout.Event, 32)
	cancel := s.svc.Subscribe(func(ev workout.Event) {
		select {
		case ch <- ev:
		default:
			// slow subscriber, skip
		}
	})
	defer cancel()

	fmt.Fprintf(w, "event: status\ndata: %s\n\n", mustJSON(map[string]any{
		"date":    s.svc.SelectedDate(),
		"percent": s.svc.TotalCompletion(),
	}))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, mustJSON(ev))
			flusher.Flush()
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
