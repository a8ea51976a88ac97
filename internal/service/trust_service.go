package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatedesk/gatedesk/internal/logger"
	"github.com/gatedesk/gatedesk/internal/model"
	"github.com/gatedesk/gatedesk/internal/repository"
)

// ErrUnauthorized is the single error Verify exposes. It covers an
// unknown fingerprint, a deactivated device, and a device revoked by
// the cascade; callers cannot distinguish these on purpose, the
// distinguishing reason is only logged.
var ErrUnauthorized = errors.New("device is not authorized")

// TrustService verifies device fingerprints against the trust store.
//
// Revocation of a device whose admitting code has lapsed is lazy: it
// happens when that device is next verified, never via a background
// sweep. A device that is never verified again therefore stays marked
// active in storage even though no live request can use it. That
// behavior is intentional and pending product sign-off; do not replace
// it with an eager sweep.
type TrustService struct {
	devices DeviceStore
	codes   CodeStore
	audit   AuditStore
	log     *logger.Logger
	now     func() time.Time
}

// NewTrustService creates a new TrustService
func NewTrustService(devices DeviceStore, codes CodeStore, audit AuditStore, log *logger.Logger) *TrustService {
	return &TrustService{
		devices: devices,
		codes:   codes,
		audit:   audit,
		log:     log.WithComponent("trust_service"),
		now:     time.Now,
	}
}

// Verify checks a fingerprint against the device store. On success the
// device's last_seen_at is bumped and the device is returned. The store
// is re-read on every call; trust state is never cached in-process.
func (s *TrustService) Verify(ctx context.Context, fp string) (*model.Device, error) {
	device, err := s.devices.GetByFingerprint(ctx, fp)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug().Str("fingerprint", fp).Msg("verification failed: unknown fingerprint")
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}

	if !device.Active {
		s.log.Debug().Str("device_id", device.ID).Msg("verification failed: device deactivated")
		return nil, ErrUnauthorized
	}

	now := s.now()

	if device.ActivationCodeID != nil {
		code, err := s.codes.GetByID(ctx, *device.ActivationCodeID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to load linked activation code: %w", err)
		}
		// A dangling link (code hard-deleted without the cascade
		// having reached this device) revokes trust the same way a
		// lapsed code does.
		if !cascadePermits(code, now) {
			if err := s.devices.SetActive(ctx, device.ID, false); err != nil {
				return nil, fmt.Errorf("failed to cascade-deactivate device: %w", err)
			}
			s.logAudit(ctx, device)
			s.log.Info().
				Str("device_id", device.ID).
				Str("code_id", *device.ActivationCodeID).
				Msg("device deactivated: linked activation code lapsed")
			return nil, ErrUnauthorized
		}
	}

	if err := s.devices.Touch(ctx, device.ID, now); err != nil {
		return nil, fmt.Errorf("failed to update device last seen: %w", err)
	}
	device.LastSeenAt = now
	return device, nil
}

// cascadePermits reports whether the admitting code still sustains the
// trust of its device at the given instant. Pure; the lazy on-read
// cascade in Verify is the only caller.
func cascadePermits(code *model.ActivationCode, now time.Time) bool {
	if code == nil {
		return false
	}
	if !code.Active {
		return false
	}
	if code.IsExpired(now) {
		return false
	}
	return true
}

func (s *TrustService) logAudit(ctx context.Context, device *model.Device) {
	resourceType := "device"
	entry := &model.AuditLog{
		ID:           generateID("aud"),
		Action:       model.AuditActionDeviceCascaded,
		ResourceType: &resourceType,
		ResourceID:   &device.ID,
		Metadata: map[string]interface{}{
			"code_id":     device.ActivationCodeID,
			"fingerprint": device.Fingerprint,
		},
		CreatedAt: s.now(),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Msg("failed to create audit log")
	}
}
