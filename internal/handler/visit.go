package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gatedesk/gatedesk/internal/middleware"
	"github.com/gatedesk/gatedesk/internal/service"
)

type createVisitRequest struct {
	VisitorName string `json:"visitorName"`
	Company     string `json:"company"`
	HostName    string `json:"hostName"`
	Purpose     string `json:"purpose"`
	BadgeNumber string `json:"badgeNumber"`
}

// CreateVisit registers a visitor check-in from a trusted kiosk
func (h *Handler) CreateVisit(w http.ResponseWriter, r *http.Request) {
	var req createVisitRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.VisitorName == "" || req.HostName == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Visitor name and host name are required")
		return
	}

	visit, err := h.visitSvc.CreateVisit(r.Context(), service.CreateVisitRequest{
		VisitorName: req.VisitorName,
		Company:     req.Company,
		HostName:    req.HostName,
		Purpose:     req.Purpose,
		BadgeNumber: req.BadgeNumber,
		DeviceID:    middleware.GetDeviceID(r.Context()),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("visit creation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusCreated, visit)
}

// ListVisits returns visit records. ?open=true limits to visitors still
// on site.
func (h *Handler) ListVisits(w http.ResponseWriter, r *http.Request) {
	openOnly := r.URL.Query().Get("open") == "true"

	visits, err := h.visitSvc.ListVisits(r.Context(), openOnly)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list visits")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"visits": visits})
}

// CheckOutVisit marks a visit as ended
func (h *Handler) CheckOutVisit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	visit, err := h.visitSvc.CheckOut(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVisitNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Visit not found")
		case errors.Is(err, service.ErrVisitClosed):
			writeError(w, http.StatusConflict, "visit_closed", "The visit is already checked out")
		default:
			h.log.Error().Err(err).Msg("visit checkout failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		}
		return
	}
	writeJSON(w, http.StatusOK, visit)
}

// ExportVisits streams the visitor log as an .xlsx workbook
func (h *Handler) ExportVisits(w http.ResponseWriter, r *http.Request) {
	buf, err := h.visitSvc.ExportWorkbook(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("visit export failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	filename := fmt.Sprintf("visitor-log-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
