package api

import (
	"net/http"
	"time"
)

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleMetrics returns operational counters for monitoring.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	stats := s.registry.GetStats()

	controllers := s.manager.List()
	byState := make(map[string]int)
	for i := range controllers {
		byState[string(controllers[i].State)]++
	}

	metrics := map[string]any{
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"devices": map[string]any{
			"total":    stats.TotalDevices,
			"by_kind":  stats.ByKind,
			"channels": stats.Channels,
		},
		"controllers": map[string]any{
			"total":    len(controllers),
			"by_state": byState,
		},
		"mapping": map[string]any{
			"state": s.matrix.State(),
			"mode":  s.matrix.Mode(),
			"rules": len(s.matrix.Rules()),
		},
	}

	if s.reporter != nil {
		metrics["events"] = s.reporter.Counts()
	}
	if s.hub != nil {
		metrics["websocket_clients"] = s.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, metrics)
}
