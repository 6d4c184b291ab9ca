package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MSandovalPhD/lisu-core/internal/mapping"
)

// setModeRequest is the body for PUT /mode.
type setModeRequest struct {
	Mode string `json:"mode"`
}

// handleListMappings returns all mapping rules in creation order.
func (s *Server) handleListMappings(w http.ResponseWriter, _ *http.Request) {
	rules := s.matrix.Rules()
	writeJSON(w, http.StatusOK, map[string]any{
		"mappings": rules,
		"count":    len(rules),
		"state":    s.matrix.State(),
	})
}

// handleCreateMapping adds a new mapping rule.
//
// Creation is fail-fast: an unknown channel or a priority conflict with an
// existing rule rejects the request without touching the rule table.
func (s *Server) handleCreateMapping(w http.ResponseWriter, r *http.Request) {
	var spec mapping.RuleSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	handle, err := s.matrix.CreateMapping(r.Context(), spec)
	if err != nil {
		switch {
		case errors.Is(err, mapping.ErrInvalidRule):
			writeValidationError(w, err.Error())
		case errors.Is(err, mapping.ErrUnknownChannel):
			writeValidationError(w, "channel is not provided by any registered device")
		case errors.Is(err, mapping.ErrMappingConflict):
			writeConflict(w, "rule conflicts with an existing equal-priority mapping")
		default:
			writeInternalError(w, "failed to create mapping")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"handle": handle})
}

// handleRemoveMapping removes a mapping rule. Removing an unknown handle
// succeeds; removal is idempotent.
func (s *Server) handleRemoveMapping(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	if err := s.matrix.RemoveMapping(r.Context(), handle); err != nil {
		writeInternalError(w, "failed to remove mapping")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": handle})
}

// handleGetMode returns the active interaction mode.
func (s *Server) handleGetMode(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"mode": s.matrix.Mode()})
}

// handleSetMode switches the active interaction mode. An empty mode resets
// to the default, enabling only rules without a mode restriction.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.matrix.SetMode(req.Mode)
	writeJSON(w, http.StatusOK, map[string]any{"mode": s.matrix.Mode()})
}
