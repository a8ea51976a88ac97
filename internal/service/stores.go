package service

import (
	"context"
	"time"

	"github.com/gatedesk/gatedesk/internal/model"
	"github.com/gatedesk/gatedesk/internal/repository"
)

// Store ports implemented by the repository layer. Services depend on
// these narrow interfaces so the trust logic can be exercised against
// in-memory fakes.

// CodeStore is the persistence surface for activation codes.
type CodeStore interface {
	Create(ctx context.Context, code *model.ActivationCode) error
	GetByID(ctx context.Context, id string) (*model.ActivationCode, error)
	GetByCode(ctx context.Context, canonical string) (*model.ActivationCode, error)
	List(ctx context.Context) ([]model.ActivationCode, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// DeviceStore is the persistence surface for trusted devices.
type DeviceStore interface {
	GetByID(ctx context.Context, id string) (*model.Device, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*model.Device, error)
	List(ctx context.Context) ([]model.Device, error)
	Touch(ctx context.Context, id string, lastSeen time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
	UpdateLabel(ctx context.Context, id, label string) error
	Delete(ctx context.Context, id string) error
}

// RedemptionStore executes the cross-entity transactions: the atomic
// code consume + device upsert, and the cascade delete.
type RedemptionStore interface {
	Redeem(ctx context.Context, codeID string, seed repository.DeviceSeed) (*model.Device, error)
	DeleteCodeCascade(ctx context.Context, codeID string) (int, error)
}

// VisitStore is the persistence surface for visit records.
type VisitStore interface {
	Create(ctx context.Context, visit *model.Visit) error
	GetByID(ctx context.Context, id string) (*model.Visit, error)
	List(ctx context.Context, openOnly bool) ([]model.Visit, error)
	CheckOut(ctx context.Context, id string, at time.Time) error
}

// UserStore is the persistence surface for operator accounts.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, now time.Time) error
}

// AuditStore records audit log entries.
type AuditStore interface {
	Create(ctx context.Context, log *model.AuditLog) error
}
