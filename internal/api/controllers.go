package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MSandovalPhD/lisu-core/internal/controller"
	"github.com/MSandovalPhD/lisu-core/internal/sampler"
)

// activateRequest is the body for POST /controllers.
type activateRequest struct {
	DeviceID string `json:"deviceId"`
}

// controllerErrorRequest is the body for POST /controllers/{id}/error.
type controllerErrorRequest struct {
	Reason string `json:"reason"`
}

// handleListControllers returns all controller instances.
func (s *Server) handleListControllers(w http.ResponseWriter, _ *http.Request) {
	instances := s.manager.List()
	writeJSON(w, http.StatusOK, map[string]any{"controllers": instances, "count": len(instances)})
}

// handleActivateController activates a controller for a registered device.
//
// Activation performs the device handshake inline, bounded by the device's
// latency budget, so the response reports the final outcome rather than a
// pending state.
func (s *Server) handleActivateController(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DeviceID == "" {
		writeValidationError(w, "deviceId is required")
		return
	}

	controllerID, err := s.manager.Activate(r.Context(), req.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, controller.ErrDeviceUnavailable):
			writeNotFound(w, "device unavailable")
		case errors.Is(err, controller.ErrAlreadyActive):
			writeConflict(w, "device already has an active controller")
		case errors.Is(err, controller.ErrInitializationTimeout):
			writeTimeout(w, "controller handshake timed out")
		default:
			writeInternalError(w, "failed to activate controller")
		}
		return
	}

	inst, err := s.manager.Status(controllerID)
	if err != nil {
		writeInternalError(w, "failed to read controller status")
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

// handleControllerStatus returns the current state of a controller instance.
func (s *Server) handleControllerStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inst, err := s.manager.Status(id)
	if err != nil {
		writeNotFound(w, "controller not found")
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// handleDeactivateController deactivates a controller and releases its device.
func (s *Server) handleDeactivateController(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.manager.Deactivate(id); err != nil {
		writeNotFound(w, "controller not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deactivated": id})
}

// handleControllerError marks a controller as failed with the given reason.
// Recovery requires re-activation.
func (s *Server) handleControllerError(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req controllerErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Reason == "" {
		writeValidationError(w, "reason is required")
		return
	}

	if err := s.manager.ReportError(id, req.Reason); err != nil {
		writeNotFound(w, "controller not found")
		return
	}

	inst, err := s.manager.Status(id)
	if err != nil {
		writeNotFound(w, "controller not found")
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// handlePollSamples returns a snapshot of the controller's buffered
// samples. The read is non-destructive: the background sampling loop
// stays the only consumer of the queue, so a diagnostic GET never
// diverts samples from the evaluator.
func (s *Server) handlePollSamples(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := s.sampler.Poll(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, sampler.ErrControllerNotActive):
			writeConflict(w, "controller is not active")
		case errors.Is(err, sampler.ErrSampleTimeout):
			writeTimeout(w, "no samples within the polling period")
		default:
			writeInternalError(w, "failed to poll samples")
		}
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleSampleCounters returns per-controller sampling counters.
func (s *Server) handleSampleCounters(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	counters, err := s.sampler.Counters(id)
	if err != nil {
		writeConflict(w, "controller is not active")
		return
	}
	writeJSON(w, http.StatusOK, counters)
}
