package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatedesk/gatedesk/internal/config"
	"github.com/gatedesk/gatedesk/internal/logger"
)

func newTestMiddleware() *Middleware {
	return New(nil, logger.New("error", "json"), &config.Config{})
}

func TestResponseWriterCapturesStatusAndSize(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusTeapot)
	rw.Write([]byte("short"))
	rw.Write([]byte(" and stout"))

	if rw.statusCode != http.StatusTeapot {
		t.Errorf("statusCode = %d, want %d", rw.statusCode, http.StatusTeapot)
	}
	if rw.bytes != len("short and stout") {
		t.Errorf("bytes = %d, want %d", rw.bytes, len("short and stout"))
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("recorded code = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("recorded body = %q", rec.Body.String())
	}
}

// The logging middleware must be transparent to the response, with or
// without a request ID upstream.
func TestLoggerPassesResponseThrough(t *testing.T) {
	t.Parallel()
	mw := newTestMiddleware()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	})

	for _, withRequestID := range []bool{false, true} {
		var chain http.Handler = mw.Logger(handler)
		if withRequestID {
			chain = mw.RequestID(chain)
		}

		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/visits", nil))

		if rec.Code != http.StatusCreated {
			t.Errorf("withRequestID=%v: code = %d, want %d", withRequestID, rec.Code, http.StatusCreated)
		}
		if rec.Body.String() != `{"ok":true}` {
			t.Errorf("withRequestID=%v: body = %q", withRequestID, rec.Body.String())
		}
	}
}
