package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gatedesk/gatedesk/internal/database"
	"github.com/gatedesk/gatedesk/internal/model"
)

// DeviceRepository handles device data persistence
type DeviceRepository struct {
	db *database.Postgres
}

// NewDeviceRepository creates a new DeviceRepository
func NewDeviceRepository(db *database.Postgres) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// GetByID retrieves a device by ID
func (r *DeviceRepository) GetByID(ctx context.Context, id string) (*model.Device, error) {
	query := `
		SELECT id, fingerprint, label, last_seen_user_agent, last_seen_ip,
		       first_authorized_at, last_seen_at, active, activation_code_id
		FROM devices
		WHERE id = $1
	`
	return r.scanDevice(r.db.QueryRowContext(ctx, query, id))
}

// GetByFingerprint finds a device by its fingerprint digest
func (r *DeviceRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*model.Device, error) {
	query := `
		SELECT id, fingerprint, label, last_seen_user_agent, last_seen_ip,
		       first_authorized_at, last_seen_at, active, activation_code_id
		FROM devices
		WHERE fingerprint = $1
	`
	return r.scanDevice(r.db.QueryRowContext(ctx, query, fingerprint))
}

// List returns all devices, most recently seen first
func (r *DeviceRepository) List(ctx context.Context) ([]model.Device, error) {
	query := `
		SELECT id, fingerprint, label, last_seen_user_agent, last_seen_ip,
		       first_authorized_at, last_seen_at, active, activation_code_id
		FROM devices
		ORDER BY last_seen_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		var device model.Device
		err := rows.Scan(
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
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device rows: %w", err)
	}
	return devices, nil
}

// Touch updates the last_seen_at timestamp for a device
func (r *DeviceRepository) Touch(ctx context.Context, id string, lastSeen time.Time) error {
	query := `UPDATE devices SET last_seen_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, lastSeen)
	if err != nil {
		return fmt.Errorf("failed to touch device: %w", err)
	}
	return nil
}

// SetActive updates the active flag on a device
func (r *DeviceRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE devices SET active = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLabel updates a device's label
func (r *DeviceRepository) UpdateLabel(ctx context.Context, id, label string) error {
	query := `UPDATE devices SET label = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, label)
	if err != nil {
		return fmt.Errorf("failed to update device label: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a device record
func (r *DeviceRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM devices WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// scanDevice scans a single device row
func (r *DeviceRepository) scanDevice(row *sql.Row) (*model.Device, error) {
	var device model.Device
	err := row.Scan(
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
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan device: %w", err)
	}
	return &device, nil
}
