package handler

import "net/http"

// Health returns the service liveness status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready checks connectivity to the database and Redis
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
	}
	healthy := true

	if err := h.db.HealthCheck(ctx); err != nil {
		checks["database"] = "unavailable"
		healthy = false
		h.log.Error().Err(err).Msg("database health check failed")
	}
	if err := h.rdb.HealthCheck(ctx); err != nil {
		checks["redis"] = "unavailable"
		healthy = false
		h.log.Error().Err(err).Msg("redis health check failed")
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{"checks": checks})
}
