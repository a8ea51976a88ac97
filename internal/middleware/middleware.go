package middleware

import (
	"fmt"
	"net/http"

	"github.com/gatedesk/gatedesk/internal/config"
	"github.com/gatedesk/gatedesk/internal/database"
	"github.com/gatedesk/gatedesk/internal/logger"
)

// Middleware holds all HTTP middleware
type Middleware struct {
	rdb *database.Redis
	log *logger.Logger
	cfg *config.Config
}

// New creates a new Middleware instance
func New(rdb *database.Redis, log *logger.Logger, cfg *config.Config) *Middleware {
	return &Middleware{
		rdb: rdb,
		log: log,
		cfg: cfg,
	}
}

// writeError emits the standard error envelope from middleware, which
// cannot reach the handler package's helpers without an import cycle.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"code":%q,"message":%q}}`, code, message)
}
