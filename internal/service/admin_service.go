package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatedesk/gatedesk/internal/logger"
	"github.com/gatedesk/gatedesk/internal/model"
	"github.com/gatedesk/gatedesk/internal/repository"
)

// Admin service errors
var (
	ErrCodeNotFound   = errors.New("activation code not found")
	ErrDeviceNotFound = errors.New("device not found")
)

// codeTokenBytes is the entropy of a generated activation code.
const codeTokenBytes = 16 // 128 bits

// AdminService implements the operator surface over codes and devices.
type AdminService struct {
	codes      CodeStore
	devices    DeviceStore
	redemption RedemptionStore
	audit      AuditStore
	log        *logger.Logger
	now        func() time.Time
}

// NewAdminService creates a new AdminService
func NewAdminService(
	codes CodeStore,
	devices DeviceStore,
	redemption RedemptionStore,
	audit AuditStore,
	log *logger.Logger,
) *AdminService {
	return &AdminService{
		codes:      codes,
		devices:    devices,
		redemption: redemption,
		audit:      audit,
		log:        log.WithComponent("admin_service"),
		now:        time.Now,
	}
}

// GeneratedCode pairs a stored activation code with its display form.
// DisplayCode is returned to the operator exactly once; afterwards only
// the canonical comparison form exists.
type GeneratedCode struct {
	Code        model.ActivationCode
	DisplayCode string
}

// GenerateCode creates a new activation code. An omitted validityDays
// (or 0 or negative) means the code never expires; a positive value
// sets the expiry that many days out.
func (s *AdminService) GenerateCode(ctx context.Context, validityDays *int, label string, actor AdminActor) (*GeneratedCode, error) {
	token := make([]byte, codeTokenBytes)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("failed to generate activation code: %w", err)
	}
	canonical := strings.ToUpper(hex.EncodeToString(token))

	now := s.now()

	days := 0
	if validityDays != nil {
		days = *validityDays
	}
	var expiresAt *time.Time
	if days > 0 {
		t := now.Add(time.Duration(days) * 24 * time.Hour)
		expiresAt = &t
	}

	code := model.ActivationCode{
		ID:        generateID("cod"),
		Code:      canonical,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		Active:    true,
	}
	if label != "" {
		code.Label = &label
	}

	if err := s.codes.Create(ctx, &code); err != nil {
		return nil, fmt.Errorf("failed to store activation code: %w", err)
	}

	s.logAudit(ctx, actor, model.AuditActionCodeGenerated, "activation_code", code.ID, map[string]interface{}{
		"label":         label,
		"validity_days": days,
	})
	s.log.Info().Str("code_id", code.ID).Int("validity_days", days).Msg("activation code generated")

	return &GeneratedCode{
		Code:        code,
		DisplayCode: model.FormatCode(canonical),
	}, nil
}

// DeactivateCode soft-disables a code. Idempotent; re-deactivating an
// already inactive code succeeds. Any device the code admitted is not
// touched here: it loses trust on its next verification.
func (s *AdminService) DeactivateCode(ctx context.Context, id string, actor AdminActor) error {
	if err := s.codes.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("failed to deactivate activation code: %w", err)
	}
	s.logAudit(ctx, actor, model.AuditActionCodeDeactivated, "activation_code", id, nil)
	s.log.Info().Str("code_id", id).Msg("activation code deactivated")
	return nil
}

// DeleteCodePermanently hard-deletes a code and force-deactivates every
// device that still references it, reporting how many devices were
// affected.
func (s *AdminService) DeleteCodePermanently(ctx context.Context, id string, actor AdminActor) (int, error) {
	affected, err := s.redemption.DeleteCodeCascade(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrCodeNotFound
		}
		return 0, fmt.Errorf("failed to delete activation code: %w", err)
	}
	s.logAudit(ctx, actor, model.AuditActionCodeDeleted, "activation_code", id, map[string]interface{}{
		"devices_deactivated": affected,
	})
	s.log.Info().Str("code_id", id).Int("devices_deactivated", affected).Msg("activation code deleted")
	return affected, nil
}

// DeactivateDevice soft-disables a device. Idempotent.
func (s *AdminService) DeactivateDevice(ctx context.Context, id string, actor AdminActor) error {
	if err := s.devices.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to deactivate device: %w", err)
	}
	s.logAudit(ctx, actor, model.AuditActionDeviceDeactivated, "device", id, nil)
	s.log.Info().Str("device_id", id).Msg("device deactivated")
	return nil
}

// RenameDevice updates a device's label
func (s *AdminService) RenameDevice(ctx context.Context, id, label string, actor AdminActor) error {
	if err := s.devices.UpdateLabel(ctx, id, label); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to rename device: %w", err)
	}
	s.logAudit(ctx, actor, model.AuditActionDeviceRenamed, "device", id, map[string]interface{}{
		"new_label": label,
	})
	return nil
}

// DeleteDevicePermanently hard-deletes a device. The admitting code is
// not affected.
func (s *AdminService) DeleteDevicePermanently(ctx context.Context, id string, actor AdminActor) error {
	if err := s.devices.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to delete device: %w", err)
	}
	s.logAudit(ctx, actor, model.AuditActionDeviceRemoved, "device", id, nil)
	s.log.Info().Str("device_id", id).Msg("device deleted")
	return nil
}

// CodeSummary is an activation code in operator listings, with the
// validity flags computed server-side.
type CodeSummary struct {
	ID                string     `json:"id"`
	Label             *string    `json:"label,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	UsedAt            *time.Time `json:"usedAt,omitempty"`
	UsedByFingerprint *string    `json:"usedByFingerprint,omitempty"`
	Active            bool       `json:"active"`
	IsUsed            bool       `json:"isUsed"`
	IsExpired         bool       `json:"isExpired"`
	DaysRemaining     *int       `json:"daysRemaining,omitempty"`
}

// ListCodes returns all activation codes for the operator dashboard.
// The code value itself is never included.
func (s *AdminService) ListCodes(ctx context.Context) ([]CodeSummary, error) {
	codes, err := s.codes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list activation codes: %w", err)
	}

	now := s.now()
	summaries := make([]CodeSummary, 0, len(codes))
	for _, c := range codes {
		summaries = append(summaries, CodeSummary{
			ID:                c.ID,
			Label:             c.Label,
			CreatedAt:         c.CreatedAt,
			ExpiresAt:         c.ExpiresAt,
			UsedAt:            c.UsedAt,
			UsedByFingerprint: c.UsedByFingerprint,
			Active:            c.Active,
			IsUsed:            c.IsUsed(),
			IsExpired:         c.IsExpired(now),
			DaysRemaining:     c.DaysRemaining(now),
		})
	}
	return summaries, nil
}

// ListDevices returns all devices for the operator dashboard
func (s *AdminService) ListDevices(ctx context.Context) ([]model.Device, error) {
	devices, err := s.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// AdminActor identifies the operator performing an administrative
// action, for the audit trail.
type AdminActor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

func (s *AdminService) logAudit(ctx context.Context, actor AdminActor, action, resourceType, resourceID string, metadata map[string]interface{}) {
	entry := &model.AuditLog{
		ID:           generateID("aud"),
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &resourceID,
		Metadata:     metadata,
		CreatedAt:    s.now(),
	}
	if actor.UserID != "" {
		entry.UserID = &actor.UserID
	}
	if actor.IPAddress != "" {
		entry.IPAddress = &actor.IPAddress
	}
	if actor.UserAgent != "" {
		entry.UserAgent = &actor.UserAgent
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", action).Msg("failed to create audit log")
	}
}
