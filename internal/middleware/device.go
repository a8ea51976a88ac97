package middleware

import (
	"context"
	"net/http"

	"github.com/gatedesk/gatedesk/internal/service"
)

// Context keys for verified device data
const (
	DeviceIDKey          contextKey = "device_id"
	DeviceFingerprintKey contextKey = "device_fingerprint"
)

// DeviceCookieName is the cookie that carries a device's fingerprint
// between visits.
const DeviceCookieName = "gatedesk_device"

// DeviceTrust gates a route on device verification. The fingerprint is
// read from the device cookie, with a header fallback for API clients
// that do not carry cookies. Every failure mode maps to the same 401
// body; the reason is only logged.
func (m *Middleware) DeviceTrust(trustSvc *service.TrustService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fp := ""
			if cookie, err := r.Cookie(DeviceCookieName); err == nil {
				fp = cookie.Value
			}
			if fp == "" {
				fp = r.Header.Get("X-Device-Fingerprint")
			}

			if fp == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "This device is not authorized")
				return
			}

			device, err := trustSvc.Verify(r.Context(), fp)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "This device is not authorized")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, DeviceIDKey, device.ID)
			ctx = context.WithValue(ctx, DeviceFingerprintKey, device.Fingerprint)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetDeviceID retrieves the verified device ID from context
func GetDeviceID(ctx context.Context) string {
	if id, ok := ctx.Value(DeviceIDKey).(string); ok {
		return id
	}
	return ""
}
