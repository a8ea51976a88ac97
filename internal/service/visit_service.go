package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatedesk/gatedesk/internal/logger"
	"github.com/gatedesk/gatedesk/internal/model"
	"github.com/gatedesk/gatedesk/internal/repository"
	"github.com/xuri/excelize/v2"
)

// Visit service errors
var (
	ErrVisitNotFound = errors.New("visit not found")
	ErrVisitClosed   = errors.New("visit is already checked out")
)

// VisitService handles visitor registration records.
type VisitService struct {
	visits VisitStore
	audit  AuditStore
	log    *logger.Logger
	now    func() time.Time
}

// NewVisitService creates a new VisitService
func NewVisitService(visits VisitStore, audit AuditStore, log *logger.Logger) *VisitService {
	return &VisitService{
		visits: visits,
		audit:  audit,
		log:    log.WithComponent("visit_service"),
		now:    time.Now,
	}
}

// CreateVisitRequest carries a new visitor registration.
type CreateVisitRequest struct {
	VisitorName string
	Company     string
	HostName    string
	Purpose     string
	BadgeNumber string
	DeviceID    string // trusted kiosk that registered the visit
}

// CreateVisit registers a visitor check-in
func (s *VisitService) CreateVisit(ctx context.Context, req CreateVisitRequest) (*model.Visit, error) {
	visit := model.Visit{
		ID:          generateID("vis"),
		VisitorName: req.VisitorName,
		HostName:    req.HostName,
		CheckedInAt: s.now(),
	}
	if req.Company != "" {
		visit.Company = &req.Company
	}
	if req.Purpose != "" {
		visit.Purpose = &req.Purpose
	}
	if req.BadgeNumber != "" {
		visit.BadgeNumber = &req.BadgeNumber
	}
	if req.DeviceID != "" {
		visit.DeviceID = &req.DeviceID
	}

	if err := s.visits.Create(ctx, &visit); err != nil {
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}

	s.logAudit(ctx, model.AuditActionVisitCreated, visit.ID, map[string]interface{}{
		"visitor_name": visit.VisitorName,
		"host_name":    visit.HostName,
	})
	s.log.Info().Str("visit_id", visit.ID).Msg("visitor checked in")
	return &visit, nil
}

// ListVisits returns visit records, optionally only open ones
func (s *VisitService) ListVisits(ctx context.Context, openOnly bool) ([]model.Visit, error) {
	visits, err := s.visits.List(ctx, openOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

// CheckOut marks a visit as ended
func (s *VisitService) CheckOut(ctx context.Context, id string) (*model.Visit, error) {
	visit, err := s.visits.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVisitNotFound
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	if !visit.IsOpen() {
		return nil, ErrVisitClosed
	}

	now := s.now()
	if err := s.visits.CheckOut(ctx, id, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost a race with a concurrent checkout.
			return nil, ErrVisitClosed
		}
		return nil, fmt.Errorf("failed to check out visit: %w", err)
	}
	visit.CheckedOutAt = &now

	s.logAudit(ctx, model.AuditActionVisitCheckedOut, visit.ID, nil)
	s.log.Info().Str("visit_id", visit.ID).Msg("visitor checked out")
	return visit, nil
}

// ExportWorkbook renders the full visitor log as an .xlsx workbook.
func (s *VisitService) ExportWorkbook(ctx context.Context) (*bytes.Buffer, error) {
	visits, err := s.visits.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Visitor Log"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Visitor", "Company", "Host", "Purpose", "Badge", "Checked In", "Checked Out"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, v := range visits {
		values := []interface{}{
			v.VisitorName,
			deref(v.Company),
			v.HostName,
			deref(v.Purpose),
			deref(v.BadgeNumber),
			v.CheckedInAt.Format(time.RFC3339),
			"",
		}
		if v.CheckedOutAt != nil {
			values[6] = v.CheckedOutAt.Format(time.RFC3339)
		}
		for col, val := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, val)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *VisitService) logAudit(ctx context.Context, action, visitID string, metadata map[string]interface{}) {
	resourceType := "visit"
	entry := &model.AuditLog{
		ID:           generateID("aud"),
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &visitID,
		Metadata:     metadata,
		CreatedAt:    s.now(),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", action).Msg("failed to create audit log")
	}
}
