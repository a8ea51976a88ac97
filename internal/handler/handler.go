package handler

import (
	"github.com/gatedesk/gatedesk/internal/config"
	"github.com/gatedesk/gatedesk/internal/database"
	"github.com/gatedesk/gatedesk/internal/logger"
	"github.com/gatedesk/gatedesk/internal/service"
)

// Handler holds all HTTP handlers and their dependencies
type Handler struct {
	db       *database.Postgres
	rdb      *database.Redis
	log      *logger.Logger
	cfg      *config.Config
	authSvc  *service.AuthService
	authzSvc *service.AuthorizationService
	trustSvc *service.TrustService
	adminSvc *service.AdminService
	visitSvc *service.VisitService
}

// New creates a new Handler with all dependencies
func New(
	db *database.Postgres,
	rdb *database.Redis,
	log *logger.Logger,
	cfg *config.Config,
	authSvc *service.AuthService,
	authzSvc *service.AuthorizationService,
	trustSvc *service.TrustService,
	adminSvc *service.AdminService,
	visitSvc *service.VisitService,
) *Handler {
	return &Handler{
		db:       db,
		rdb:      rdb,
		log:      log,
		cfg:      cfg,
		authSvc:  authSvc,
		authzSvc: authzSvc,
		trustSvc: trustSvc,
		adminSvc: adminSvc,
		visitSvc: visitSvc,
	}
}
