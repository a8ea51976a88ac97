package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gatedesk/gatedesk/internal/database"
	"github.com/gatedesk/gatedesk/internal/model"
)

// RedemptionRepository owns the operations that must mutate activation
// codes and devices atomically: consuming a code while upserting the
// admitted device, and deleting a code while force-deactivating the
// devices it admitted.
type RedemptionRepository struct {
	db *database.Postgres
}

// NewRedemptionRepository creates a new RedemptionRepository
func NewRedemptionRepository(db *database.Postgres) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// DeviceSeed carries the device state written during a redemption.
type DeviceSeed struct {
	ID          string // used only when the fingerprint is new
	Fingerprint string
	Label       *string // seeded from the code's label
	UserAgent   string
	IPAddress   string
	Now         time.Time
}

// Redeem consumes the code and creates or refreshes the device in one
// transaction. The consume is a conditional update on used_at IS NULL;
// when it matches no row a concurrent redemption already won and the
// whole transaction is rolled back with ErrCodeUsed, leaving no trace
// of the device upsert.
func (r *RedemptionRepository) Redeem(ctx context.Context, codeID string, seed DeviceSeed) (*model.Device, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin redemption: %w", err)
	}
	defer tx.Rollback()

	consume := `
		UPDATE activation_codes
		SET used_at = $2, used_by_fingerprint = $3
		WHERE id = $1 AND used_at IS NULL
	`
	res, err := tx.ExecContext(ctx, consume, codeID, seed.Now, seed.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to consume activation code: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return nil, ErrCodeUsed
	}

	// Existing fingerprints are refreshed and re-linked; the label is
	// kept unless empty and first_authorized_at never changes.
	upsert := `
		INSERT INTO devices (id, fingerprint, label, last_seen_user_agent, last_seen_ip,
		    first_authorized_at, last_seen_at, active, activation_code_id)
		VALUES ($1, $2, $3, $4, $5, $6, $6, TRUE, $7)
		ON CONFLICT (fingerprint) DO UPDATE SET
		    label = COALESCE(NULLIF(devices.label, ''), EXCLUDED.label),
		    last_seen_user_agent = EXCLUDED.last_seen_user_agent,
		    last_seen_ip = EXCLUDED.last_seen_ip,
		    last_seen_at = EXCLUDED.last_seen_at,
		    active = TRUE,
		    activation_code_id = EXCLUDED.activation_code_id
		RETURNING id, fingerprint, label, last_seen_user_agent, last_seen_ip,
		    first_authorized_at, last_seen_at, active, activation_code_id
	`
	var device model.Device
	err = tx.QueryRowContext(ctx, upsert,
		seed.ID,
		seed.Fingerprint,
		seed.Label,
		seed.UserAgent,
		seed.IPAddress,
		seed.Now,
		codeID,
	).Scan(
		&device.ID,
		&device.Fingerprint,
		&device.Label,
		&device.LastSeenUserAgent,
		&device.LastSeenIP,
		&device.FirstAuthorizedAt,
		&device.LastSeenAt,
		&device.Active,
		&device.ActivationCodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}
	return &device, nil
}

// DeleteCodeCascade deletes an activation code and force-deactivates
// every device that still references it, in one transaction. It returns
// the number of devices that were transitioned to inactive.
func (r *RedemptionRepository) DeleteCodeCascade(ctx context.Context, codeID string) (int, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin cascade delete: %w", err)
	}
	defer tx.Rollback()

	deactivate := `
		UPDATE devices
		SET active = FALSE
		WHERE activation_code_id = $1 AND active = TRUE
	`
	res, err := tx.ExecContext(ctx, deactivate, codeID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate linked devices: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	del := `DELETE FROM activation_codes WHERE id = $1`
	res, err = tx.ExecContext(ctx, del, codeID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete activation code: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if deleted == 0 {
		return 0, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cascade delete: %w", err)
	}
	return int(affected), nil
}
