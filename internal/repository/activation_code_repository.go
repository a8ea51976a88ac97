package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gatedesk/gatedesk/internal/database"
	"github.com/gatedesk/gatedesk/internal/model"
)

// ActivationCodeRepository handles activation code persistence
type ActivationCodeRepository struct {
	db *database.Postgres
}

// NewActivationCodeRepository creates a new ActivationCodeRepository
func NewActivationCodeRepository(db *database.Postgres) *ActivationCodeRepository {
	return &ActivationCodeRepository{db: db}
}

// Create inserts a new activation code
func (r *ActivationCodeRepository) Create(ctx context.Context, code *model.ActivationCode) error {
	query := `
		INSERT INTO activation_codes (id, code, label, created_at, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		code.ID,
		code.Code,
		code.Label,
		code.CreatedAt,
		code.ExpiresAt,
		code.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create activation code: %w", err)
	}
	return nil
}

// GetByID retrieves an activation code by ID
func (r *ActivationCodeRepository) GetByID(ctx context.Context, id string) (*model.ActivationCode, error) {
	query := `
		SELECT id, code, label, created_at, expires_at, used_at, used_by_fingerprint, active
		FROM activation_codes
		WHERE id = $1
	`
	return r.scanCode(r.db.QueryRowContext(ctx, query, id))
}

// GetByCode retrieves an activation code by its canonical code value
func (r *ActivationCodeRepository) GetByCode(ctx context.Context, canonical string) (*model.ActivationCode, error) {
	query := `
		SELECT id, code, label, created_at, expires_at, used_at, used_by_fingerprint, active
		FROM activation_codes
		WHERE code = $1
	`
	return r.scanCode(r.db.QueryRowContext(ctx, query, canonical))
}

// List returns all activation codes, newest first
func (r *ActivationCodeRepository) List(ctx context.Context) ([]model.ActivationCode, error) {
	query := `
		SELECT id, code, label, created_at, expires_at, used_at, used_by_fingerprint, active
		FROM activation_codes
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query activation codes: %w", err)
	}
	defer rows.Close()

	var codes []model.ActivationCode
	for rows.Next() {
		var code model.ActivationCode
		err := rows.Scan(
			&code.ID,
			&code.Code,
			&code.Label,
			&code.CreatedAt,
			&code.ExpiresAt,
			&code.UsedAt,
			&code.UsedByFingerprint,
			&code.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activation code row: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activation code rows: %w", err)
	}
	return codes, nil
}

// SetActive updates the soft-disable switch on a code
func (r *ActivationCodeRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE activation_codes SET active = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to update activation code: %w", err)
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

// scanCode scans a single activation code row
func (r *ActivationCodeRepository) scanCode(row *sql.Row) (*model.ActivationCode, error) {
	var code model.ActivationCode
	err := row.Scan(
		&code.ID,
		&code.Code,
		&code.Label,
		&code.CreatedAt,
		&code.ExpiresAt,
		&code.UsedAt,
		&code.UsedByFingerprint,
		&code.Active,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan activation code: %w", err)
	}
	return &code, nil
}
