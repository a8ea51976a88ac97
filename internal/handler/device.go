package handler

import (
	"errors"
	"net/http"

	"github.com/gatedesk/gatedesk/internal/fingerprint"
	"github.com/gatedesk/gatedesk/internal/middleware"
	"github.com/gatedesk/gatedesk/internal/service"
)

// authorizeRequest is the body of a device authorization attempt. The
// client attributes feed the fingerprint digest; any of them may be
// omitted.
type authorizeRequest struct {
	Code                string `json:"code"`
	ScreenWidth         int    `json:"screenWidth"`
	ScreenHeight        int    `json:"screenHeight"`
	Timezone            string `json:"timezone"`
	Platform            string `json:"platform"`
	HardwareConcurrency int    `json:"hardwareConcurrency"`
}

type authorizeResponse struct {
	DeviceID  string `json:"deviceId"`
	NewDevice bool   `json:"newDevice"`
}

// AuthorizeDevice redeems an activation code and establishes device
// trust. On success the fingerprint is set as a long-lived cookie so
// subsequent requests verify without re-entering a code.
func (h *Handler) AuthorizeDevice(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "An activation code is required")
		return
	}

	clientIP := getClientIP(r)
	fp := fingerprint.Derive(fingerprint.Attributes{
		UserAgent:           r.UserAgent(),
		AcceptLanguage:      r.Header.Get("Accept-Language"),
		AcceptEncoding:      r.Header.Get("Accept-Encoding"),
		ScreenWidth:         req.ScreenWidth,
		ScreenHeight:        req.ScreenHeight,
		Timezone:            req.Timezone,
		Platform:            req.Platform,
		HardwareConcurrency: req.HardwareConcurrency,
		RemoteIP:            clientIP,
	})

	result, err := h.authzSvc.Authorize(r.Context(), service.AuthorizeRequest{
		RawCode:     req.Code,
		Fingerprint: fp,
		UserAgent:   r.UserAgent(),
		IPAddress:   clientIP,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCode):
			writeError(w, http.StatusNotFound, "invalid_code", "The activation code is not recognized")
		case errors.Is(err, service.ErrCodeDeactivated):
			writeError(w, http.StatusForbidden, "code_deactivated", "The activation code has been deactivated")
		case errors.Is(err, service.ErrCodeAlreadyUsed):
			writeError(w, http.StatusConflict, "code_already_used", "The activation code has already been used")
		case errors.Is(err, service.ErrCodeExpired):
			writeError(w, http.StatusGone, "code_expired", "The activation code has expired")
		default:
			h.log.Error().Err(err).Msg("device authorization failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		}
		return
	}

	h.setDeviceCookie(w, fp)

	writeJSON(w, http.StatusOK, authorizeResponse{
		DeviceID:  result.Device.ID,
		NewDevice: result.NewDevice,
	})
}

// DeviceStatus reports whether the calling device is currently trusted.
// Unlike the trust middleware it always answers 200; kiosks poll it at
// startup to decide whether to show the activation prompt.
func (h *Handler) DeviceStatus(w http.ResponseWriter, r *http.Request) {
	fp := ""
	if cookie, err := r.Cookie(middleware.DeviceCookieName); err == nil {
		fp = cookie.Value
	}
	if fp == "" {
		fp = r.Header.Get("X-Device-Fingerprint")
	}
	if fp == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"authorized": false})
		return
	}

	device, err := h.trustSvc.Verify(r.Context(), fp)
	if err != nil {
		if !errors.Is(err, service.ErrUnauthorized) {
			h.log.Error().Err(err).Msg("device status check failed")
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"authorized": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authorized": true,
		"deviceId":   device.ID,
		"label":      device.Label,
	})
}

func (h *Handler) setDeviceCookie(w http.ResponseWriter, fp string) {
	sameSite := http.SameSiteLaxMode
	switch h.cfg.Cookie.SameSite {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.DeviceCookieName,
		Value:    fp,
		Path:     "/",
		MaxAge:   int(h.cfg.Cookie.DeviceMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: sameSite,
	})
}
