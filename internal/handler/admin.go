package handler

import (
	"errors"
	"net/http"

	"github.com/gatedesk/gatedesk/internal/middleware"
	"github.com/gatedesk/gatedesk/internal/service"
)

func (h *Handler) adminActor(r *http.Request) service.AdminActor {
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	return service.AdminActor{
		UserID:    userID,
		IPAddress: getClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

type generateCodeRequest struct {
	ValidityDays *int   `json:"validityDays"`
	Label        string `json:"label"`
}

// GenerateCode creates a new activation code. The response carries the
// display form of the code; it is the only time the code is ever shown.
func (h *Handler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	var req generateCodeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	generated, err := h.adminSvc.GenerateCode(r.Context(), req.ValidityDays, req.Label, h.adminActor(r))
	if err != nil {
		h.log.Error().Err(err).Msg("code generation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        generated.Code.ID,
		"code":      generated.DisplayCode,
		"label":     generated.Code.Label,
		"expiresAt": generated.Code.ExpiresAt,
	})
}

// ListCodes returns all activation codes
func (h *Handler) ListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.adminSvc.ListCodes(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list codes")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"codes": codes})
}

// DeactivateCode soft-disables an activation code
func (h *Handler) DeactivateCode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.adminSvc.DeactivateCode(r.Context(), id, h.adminActor(r)); err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Activation code not found")
			return
		}
		h.log.Error().Err(err).Msg("code deactivation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// DeleteCode hard-deletes an activation code and reports how many
// devices lost trust as a result.
func (h *Handler) DeleteCode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	affected, err := h.adminSvc.DeleteCodePermanently(r.Context(), id, h.adminActor(r))
	if err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Activation code not found")
			return
		}
		h.log.Error().Err(err).Msg("code deletion failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "deleted",
		"devicesDeactivated": affected,
	})
}

// ListDevices returns all devices in the trust store
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.adminSvc.ListDevices(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list devices")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}

// DeactivateDevice soft-disables a device
func (h *Handler) DeactivateDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.adminSvc.DeactivateDevice(r.Context(), id, h.adminActor(r)); err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Device not found")
			return
		}
		h.log.Error().Err(err).Msg("device deactivation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

type renameDeviceRequest struct {
	Label string `json:"label"`
}

// RenameDevice updates a device's label
func (h *Handler) RenameDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req renameDeviceRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.adminSvc.RenameDevice(r.Context(), id, req.Label, h.adminActor(r)); err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Device not found")
			return
		}
		h.log.Error().Err(err).Msg("device rename failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

// DeleteDevice hard-deletes a device from the trust store
func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.adminSvc.DeleteDevicePermanently(r.Context(), id, h.adminActor(r)); err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Device not found")
			return
		}
		h.log.Error().Err(err).Msg("device deletion failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
