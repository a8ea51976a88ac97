package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatedesk/gatedesk/internal/config"
	"github.com/gatedesk/gatedesk/internal/email"
	"github.com/gatedesk/gatedesk/internal/logger"
	"github.com/gatedesk/gatedesk/internal/model"
	"github.com/gatedesk/gatedesk/internal/repository"
)

// Redemption errors. Each validation step terminates with a distinct
// kind so operators can tell a mistyped code from a consumed or expired
// one.
var (
	ErrInvalidCode     = errors.New("activation code not recognized")
	ErrCodeDeactivated = errors.New("activation code is deactivated")
	ErrCodeAlreadyUsed = errors.New("activation code has already been used")
	ErrCodeExpired     = errors.New("activation code has expired")
)

// redeemRetries bounds retries of transient transaction conflicts that
// are not attributable to a genuine double redemption.
const redeemRetries = 3

// AuthorizationService redeems activation codes and admits devices into
// the trust store.
type AuthorizationService struct {
	codes      CodeStore
	redemption RedemptionStore
	audit      AuditStore
	notifier   email.Sender // nil when admission alerts are disabled
	cfg        *config.Config
	log        *logger.Logger
	now        func() time.Time
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(
	codes CodeStore,
	redemption RedemptionStore,
	audit AuditStore,
	notifier email.Sender,
	cfg *config.Config,
	log *logger.Logger,
) *AuthorizationService {
	return &AuthorizationService{
		codes:      codes,
		redemption: redemption,
		audit:      audit,
		notifier:   notifier,
		cfg:        cfg,
		log:        log.WithComponent("authorization_service"),
		now:        time.Now,
	}
}

// AuthorizeRequest carries one redemption attempt.
type AuthorizeRequest struct {
	RawCode     string
	Fingerprint string
	UserAgent   string
	IPAddress   string
}

// AuthorizeResult is returned on a successful redemption.
type AuthorizeResult struct {
	Device    *model.Device
	NewDevice bool
}

// Authorize redeems an activation code for a device fingerprint.
//
// Validation runs in a fixed order and each failure is terminal:
// unknown code, deactivated, already used, expired. The consume of the
// code and the device upsert then run in a single transaction gated by
// a conditional update on the code's used_at; when a concurrent
// redemption wins that race the transaction is rolled back whole and
// the caller sees ErrCodeAlreadyUsed. No failure path leaves any
// observable state behind.
func (s *AuthorizationService) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	canonical := model.NormalizeCode(req.RawCode)
	if canonical == "" {
		return nil, ErrInvalidCode
	}

	code, err := s.codes.GetByCode(ctx, canonical)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug().Str("ip", req.IPAddress).Msg("redemption attempt with unknown code")
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to look up activation code: %w", err)
	}

	if !code.Active {
		return nil, ErrCodeDeactivated
	}
	if code.IsUsed() {
		return nil, ErrCodeAlreadyUsed
	}

	now := s.now()
	if code.IsExpired(now) {
		return nil, ErrCodeExpired
	}

	seed := repository.DeviceSeed{
		ID:          generateID("dev"),
		Fingerprint: req.Fingerprint,
		Label:       code.Label,
		UserAgent:   req.UserAgent,
		IPAddress:   req.IPAddress,
		Now:         now,
	}

	var device *model.Device
	for attempt := 0; ; attempt++ {
		device, err = s.redemption.Redeem(ctx, code.ID, seed)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrCodeUsed) {
			// A concurrent redemption consumed the code first.
			s.log.Info().Str("code_id", code.ID).Msg("redemption lost race on activation code")
			return nil, ErrCodeAlreadyUsed
		}
		if repository.IsSerializationFailure(err) && attempt < redeemRetries {
			s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("retrying redemption after transaction conflict")
			continue
		}
		return nil, fmt.Errorf("failed to redeem activation code: %w", err)
	}

	newDevice := device.FirstAuthorizedAt.Equal(device.LastSeenAt)

	action := model.AuditActionDeviceRefreshed
	if newDevice {
		action = model.AuditActionDeviceAdmitted
	}
	s.logAudit(ctx, action, "device", device.ID, req.IPAddress, req.UserAgent, map[string]interface{}{
		"code_id":     code.ID,
		"fingerprint": device.Fingerprint,
	})

	s.log.Info().
		Str("device_id", device.ID).
		Str("code_id", code.ID).
		Bool("new_device", newDevice).
		Msg("activation code redeemed")

	if newDevice && s.notifier != nil && s.cfg.Email.AdminAddress != "" {
		go s.sendAdmissionAlert(device, req.IPAddress)
	}

	return &AuthorizeResult{Device: device, NewDevice: newDevice}, nil
}

// sendAdmissionAlert notifies operators of a first-time admission.
// Best-effort: failures are logged, never surfaced to the client.
func (s *AuthorizationService) sendAdmissionAlert(device *model.Device, ipAddress string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	label := "unnamed device"
	if device.Label != nil && *device.Label != "" {
		label = *device.Label
	}

	msg := email.Message{
		To:      s.cfg.Email.AdminAddress,
		Subject: "Gatedesk: new device admitted",
		TextBody: fmt.Sprintf(
			"A new device was admitted to the trust store.\n\nLabel: %s\nDevice ID: %s\nIP address: %s\nAdmitted at: %s\n",
			label, device.ID, ipAddress, device.FirstAuthorizedAt.Format(time.RFC3339),
		),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("device_id", device.ID).Msg("failed to send admission alert")
	}
}

// logAudit creates an audit log entry
func (s *AuthorizationService) logAudit(ctx context.Context, action, resourceType, resourceID, ipAddress, userAgent string, metadata map[string]interface{}) {
	entry := &model.AuditLog{
		ID:           generateID("aud"),
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &resourceID,
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		Metadata:     metadata,
		CreatedAt:    s.now(),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", action).Msg("failed to create audit log")
	}
}
