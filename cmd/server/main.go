package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatedesk/gatedesk/internal/auth"
	"github.com/gatedesk/gatedesk/internal/config"
	"github.com/gatedesk/gatedesk/internal/database"
	"github.com/gatedesk/gatedesk/internal/email"
	"github.com/gatedesk/gatedesk/internal/handler"
	"github.com/gatedesk/gatedesk/internal/logger"
	"github.com/gatedesk/gatedesk/internal/middleware"
	"github.com/gatedesk/gatedesk/internal/repository"
	"github.com/gatedesk/gatedesk/internal/router"
	"github.com/gatedesk/gatedesk/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("starting gatedesk server")

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	tokenSvc, err := auth.NewTokenService(cfg.Security.Session)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session tokens")
	}

	var notifier email.Sender
	if cfg.Email.Enabled {
		notifier, err = newEmailSender(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize email sender")
		}
		log.Info().Str("admin_address", cfg.Email.AdminAddress).Msg("admission alerts enabled")
	}

	// Repositories
	codeRepo := repository.NewActivationCodeRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Services
	authSvc := service.NewAuthService(userRepo, tokenSvc, auditRepo, cfg, log)
	authzSvc := service.NewAuthorizationService(codeRepo, redemptionRepo, auditRepo, notifier, cfg, log)
	trustSvc := service.NewTrustService(deviceRepo, codeRepo, auditRepo, log)
	adminSvc := service.NewAdminService(codeRepo, deviceRepo, redemptionRepo, auditRepo, log)
	visitSvc := service.NewVisitService(visitRepo, auditRepo, log)

	h := handler.New(db, rdb, log, cfg, authSvc, authzSvc, trustSvc, adminSvc, visitSvc)
	mw := middleware.New(rdb, log, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(h, mw, tokenSvc, trustSvc),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

func newEmailSender(ctx context.Context, cfg *config.Config) (email.Sender, error) {
	gm := cfg.Email.Gmail
	if gm.CredentialsJSON != "" {
		return email.NewGmailSender(ctx, email.GmailConfig{
			CredentialsJSON: gm.CredentialsJSON,
			SenderAddress:   gm.SenderAddress,
			SenderName:      gm.SenderName,
		})
	}
	return email.NewGmailSenderWithToken(ctx, gm.ClientID, gm.ClientSecret, gm.RefreshToken, gm.SenderAddress, gm.SenderName)
}
