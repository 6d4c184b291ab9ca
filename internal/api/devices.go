package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MSandovalPhD/lisu-core/internal/device"
)

// handleListDevices returns all registered device descriptors.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.Enumerate(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device descriptor by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	desc, err := s.registry.Lookup(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, desc)
}

// handleRegisterDevice registers a new device descriptor.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var desc device.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	id, err := s.registry.Register(r.Context(), &desc)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrInvalidDescriptor):
			writeValidationError(w, err.Error())
		case errors.Is(err, device.ErrDuplicateDevice):
			writeConflict(w, "device already registered")
		default:
			writeInternalError(w, "failed to register device")
		}
		return
	}

	desc.ID = id
	writeJSON(w, http.StatusCreated, desc)
}

// handleRemoveDevice removes a device from the registry.
func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.registry.Remove(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to remove device")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"removed": id})
}

// handleDeviceStats returns registry statistics.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.GetStats())
}
