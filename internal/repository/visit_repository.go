package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gatedesk/gatedesk/internal/database"
	"github.com/gatedesk/gatedesk/internal/model"
)

// VisitRepository handles visit record persistence
type VisitRepository struct {
	db *database.Postgres
}

// NewVisitRepository creates a new VisitRepository
func NewVisitRepository(db *database.Postgres) *VisitRepository {
	return &VisitRepository{db: db}
}

// Create inserts a new visit record
func (r *VisitRepository) Create(ctx context.Context, visit *model.Visit) error {
	query := `
		INSERT INTO visits (id, visitor_name, company, host_name, purpose,
		    badge_number, device_id, checked_in_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		visit.ID,
		visit.VisitorName,
		visit.Company,
		visit.HostName,
		visit.Purpose,
		visit.BadgeNumber,
		visit.DeviceID,
		visit.CheckedInAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

// GetByID retrieves a visit by ID
func (r *VisitRepository) GetByID(ctx context.Context, id string) (*model.Visit, error) {
	query := `
		SELECT id, visitor_name, company, host_name, purpose, badge_number,
		       device_id, checked_in_at, checked_out_at
		FROM visits
		WHERE id = $1
	`
	var visit model.Visit
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&visit.ID,
		&visit.VisitorName,
		&visit.Company,
		&visit.HostName,
		&visit.Purpose,
		&visit.BadgeNumber,
		&visit.DeviceID,
		&visit.CheckedInAt,
		&visit.CheckedOutAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan visit: %w", err)
	}
	return &visit, nil
}

// List returns visit records, newest first. When openOnly is true only
// visitors still on site are returned.
func (r *VisitRepository) List(ctx context.Context, openOnly bool) ([]model.Visit, error) {
	query := `
		SELECT id, visitor_name, company, host_name, purpose, badge_number,
		       device_id, checked_in_at, checked_out_at
		FROM visits
	`
	if openOnly {
		query += ` WHERE checked_out_at IS NULL`
	}
	query += ` ORDER BY checked_in_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []model.Visit
	for rows.Next() {
		var visit model.Visit
		err := rows.Scan(
			&visit.ID,
			&visit.VisitorName,
			&visit.Company,
			&visit.HostName,
			&visit.Purpose,
			&visit.BadgeNumber,
			&visit.DeviceID,
			&visit.CheckedInAt,
			&visit.CheckedOutAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit row: %w", err)
		}
		visits = append(visits, visit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visit rows: %w", err)
	}
	return visits, nil
}

// CheckOut stamps the checkout time on an open visit. Returns
// ErrNotFound when the visit does not exist or is already closed.
func (r *VisitRepository) CheckOut(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE visits
		SET checked_out_at = $2
		WHERE id = $1 AND checked_out_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to check out visit: %w", err)
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
