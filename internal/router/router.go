package router

import (
	"net/http"
	"time"

	"github.com/gatedesk/gatedesk/internal/auth"
	"github.com/gatedesk/gatedesk/internal/handler"
	"github.com/gatedesk/gatedesk/internal/middleware"
	"github.com/gatedesk/gatedesk/internal/service"
)

// New builds the HTTP routing table and wraps it in the global
// middleware chain.
func New(h *handler.Handler, mw *middleware.Middleware, tokenSvc *auth.TokenService, trustSvc *service.TrustService) http.Handler {
	mux := http.NewServeMux()

	requireAuth := mw.Auth(tokenSvc)
	requireDevice := mw.DeviceTrust(trustSvc)

	// Redemption is the only unauthenticated write surface, so it gets
	// the tightest rate limit.
	authorizeLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  10,
		Window: time.Minute,
		KeyFn:  middleware.IPKey,
	})
	loginLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  20,
		Window: time.Minute,
		KeyFn:  middleware.IPKey,
	})

	// Health
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	// Device authorization (public)
	mux.Handle("POST /api/v1/device/authorize", authorizeLimit(http.HandlerFunc(h.AuthorizeDevice)))
	mux.HandleFunc("GET /api/v1/device/status", h.DeviceStatus)

	// Visitor registration (trusted devices only)
	mux.Handle("POST /api/v1/visits", requireDevice(http.HandlerFunc(h.CreateVisit)))
	mux.Handle("GET /api/v1/visits", requireDevice(http.HandlerFunc(h.ListVisits)))
	mux.Handle("POST /api/v1/visits/{id}/checkout", requireDevice(http.HandlerFunc(h.CheckOutVisit)))

	// Operator authentication
	mux.Handle("POST /api/v1/auth/login", loginLimit(http.HandlerFunc(h.Login)))
	mux.Handle("POST /api/v1/auth/logout", requireAuth(http.HandlerFunc(h.Logout)))
	mux.Handle("POST /api/v1/auth/password/change", requireAuth(http.HandlerFunc(h.ChangePassword)))

	// Operator administration
	mux.Handle("POST /api/v1/admin/codes", requireAuth(http.HandlerFunc(h.GenerateCode)))
	mux.Handle("GET /api/v1/admin/codes", requireAuth(http.HandlerFunc(h.ListCodes)))
	mux.Handle("POST /api/v1/admin/codes/{id}/deactivate", requireAuth(http.HandlerFunc(h.DeactivateCode)))
	mux.Handle("DELETE /api/v1/admin/codes/{id}", requireAuth(http.HandlerFunc(h.DeleteCode)))
	mux.Handle("GET /api/v1/admin/devices", requireAuth(http.HandlerFunc(h.ListDevices)))
	mux.Handle("POST /api/v1/admin/devices/{id}/deactivate", requireAuth(http.HandlerFunc(h.DeactivateDevice)))
	mux.Handle("PATCH /api/v1/admin/devices/{id}", requireAuth(http.HandlerFunc(h.RenameDevice)))
	mux.Handle("DELETE /api/v1/admin/devices/{id}", requireAuth(http.HandlerFunc(h.DeleteDevice)))
	mux.Handle("GET /api/v1/admin/visits/export", requireAuth(http.HandlerFunc(h.ExportVisits)))

	// Global middleware chain, outermost first
	var root http.Handler = mux
	root = mw.CORS(root)
	root = mw.SecurityHeaders(root)
	root = mw.Logger(root)
	root = mw.RequestID(root)
	root = mw.Recover(root)

	return root
}
