package api

import (
	"net/http"
	"strconv"

	"github.com/MSandovalPhD/lisu-core/internal/status"
)

// defaultEventLimit bounds GET /events responses when no limit is given.
const defaultEventLimit = 100

// handleListEvents returns recent status events, newest first.
//
// Query parameters:
//   - kind: filter by event kind (e.g. "overflow", "latency_violation")
//   - limit: maximum number of events (default 100)
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeNotFound(w, "event history is not configured")
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	kind := status.Kind(r.URL.Query().Get("kind"))

	events, err := s.events.ListRecent(r.Context(), kind, limit)
	if err != nil {
		writeInternalError(w, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}
