package service

import (
	"context"
	"sync"
	"time"

	"github.com/gatedesk/gatedesk/internal/config"
	"github.com/gatedesk/gatedesk/internal/logger"
	"github.com/gatedesk/gatedesk/internal/model"
	"github.com/gatedesk/gatedesk/internal/repository"
)

// memDB is a mutex-guarded in-memory stand-in for the database. The
// fakes below expose it through the same store ports the repositories
// implement, with the same atomicity guarantees on Redeem and
// DeleteCodeCascade.
type memDB struct {
	mu      sync.Mutex
	codes   map[string]*model.ActivationCode
	devices map[string]*model.Device
	visits  map[string]*model.Visit
	users   map[string]*model.User
	audits  []model.AuditLog
}

func newMemDB() *memDB {
	return &memDB{
		codes:   make(map[string]*model.ActivationCode),
		devices: make(map[string]*model.Device),
		visits:  make(map[string]*model.Visit),
		users:   make(map[string]*model.User),
	}
}

func copyCode(c *model.ActivationCode) *model.ActivationCode {
	cp := *c
	return &cp
}

func copyDevice(d *model.Device) *model.Device {
	cp := *d
	return &cp
}

func copyVisit(v *model.Visit) *model.Visit {
	cp := *v
	return &cp
}

type fakeCodeStore struct{ db *memDB }

func (s *fakeCodeStore) Create(ctx context.Context, code *model.ActivationCode) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.codes {
		if existing.Code == code.Code {
			return repository.ErrDuplicate
		}
	}
	s.db.codes[code.ID] = copyCode(code)
	return nil
}

func (s *fakeCodeStore) GetByID(ctx context.Context, id string) (*model.ActivationCode, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	code, ok := s.db.codes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyCode(code), nil
}

func (s *fakeCodeStore) GetByCode(ctx context.Context, canonical string) (*model.ActivationCode, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, code := range s.db.codes {
		if code.Code == canonical {
			return copyCode(code), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeCodeStore) List(ctx context.Context) ([]model.ActivationCode, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.ActivationCode
	for _, code := range s.db.codes {
		out = append(out, *copyCode(code))
	}
	return out, nil
}

func (s *fakeCodeStore) SetActive(ctx context.Context, id string, active bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	code, ok := s.db.codes[id]
	if !ok {
		return repository.ErrNotFound
	}
	code.Active = active
	return nil
}

type fakeDeviceStore struct{ db *memDB }

func (s *fakeDeviceStore) GetByID(ctx context.Context, id string) (*model.Device, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	device, ok := s.db.devices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyDevice(device), nil
}

func (s *fakeDeviceStore) GetByFingerprint(ctx context.Context, fingerprint string) (*model.Device, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, device := range s.db.devices {
		if device.Fingerprint == fingerprint {
			return copyDevice(device), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeDeviceStore) List(ctx context.Context) ([]model.Device, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Device
	for _, device := range s.db.devices {
		out = append(out, *copyDevice(device))
	}
	return out, nil
}

func (s *fakeDeviceStore) Touch(ctx context.Context, id string, lastSeen time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if device, ok := s.db.devices[id]; ok {
		device.LastSeenAt = lastSeen
	}
	return nil
}

func (s *fakeDeviceStore) SetActive(ctx context.Context, id string, active bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	device, ok := s.db.devices[id]
	if !ok {
		return repository.ErrNotFound
	}
	device.Active = active
	return nil
}

func (s *fakeDeviceStore) UpdateLabel(ctx context.Context, id, label string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	device, ok := s.db.devices[id]
	if !ok {
		return repository.ErrNotFound
	}
	device.Label = &label
	return nil
}

func (s *fakeDeviceStore) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.devices[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.devices, id)
	return nil
}

type fakeRedemptionStore struct{ db *memDB }

func (s *fakeRedemptionStore) Redeem(ctx context.Context, codeID string, seed repository.DeviceSeed) (*model.Device, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	code, ok := s.db.codes[codeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if code.UsedAt != nil {
		return nil, repository.ErrCodeUsed
	}
	now := seed.Now
	code.UsedAt = &now
	code.UsedByFingerprint = &seed.Fingerprint

	for _, device := range s.db.devices {
		if device.Fingerprint == seed.Fingerprint {
			if device.Label == nil || *device.Label == "" {
				device.Label = seed.Label
			}
			device.LastSeenUserAgent = &seed.UserAgent
			device.LastSeenIP = &seed.IPAddress
			device.LastSeenAt = seed.Now
			device.Active = true
			device.ActivationCodeID = &code.ID
			return copyDevice(device), nil
		}
	}

	device := &model.Device{
		ID:                seed.ID,
		Fingerprint:       seed.Fingerprint,
		Label:             seed.Label,
		LastSeenUserAgent: &seed.UserAgent,
		LastSeenIP:        &seed.IPAddress,
		FirstAuthorizedAt: seed.Now,
		LastSeenAt:        seed.Now,
		Active:            true,
		ActivationCodeID:  &code.ID,
	}
	s.db.devices[device.ID] = device
	return copyDevice(device), nil
}

func (s *fakeRedemptionStore) DeleteCodeCascade(ctx context.Context, codeID string) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.codes[codeID]; !ok {
		return 0, repository.ErrNotFound
	}

	affected := 0
	for _, device := range s.db.devices {
		if device.ActivationCodeID != nil && *device.ActivationCodeID == codeID && device.Active {
			device.Active = false
			affected++
		}
	}
	delete(s.db.codes, codeID)
	return affected, nil
}

type fakeVisitStore struct{ db *memDB }

func (s *fakeVisitStore) Create(ctx context.Context, visit *model.Visit) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.visits[visit.ID] = copyVisit(visit)
	return nil
}

func (s *fakeVisitStore) GetByID(ctx context.Context, id string) (*model.Visit, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	visit, ok := s.db.visits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyVisit(visit), nil
}

func (s *fakeVisitStore) List(ctx context.Context, openOnly bool) ([]model.Visit, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Visit
	for _, visit := range s.db.visits {
		if openOnly && visit.CheckedOutAt != nil {
			continue
		}
		out = append(out, *copyVisit(visit))
	}
	return out, nil
}

func (s *fakeVisitStore) CheckOut(ctx context.Context, id string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	visit, ok := s.db.visits[id]
	if !ok || visit.CheckedOutAt != nil {
		return repository.ErrNotFound
	}
	visit.CheckedOutAt = &at
	return nil
}

type fakeUserStore struct{ db *memDB }

func (s *fakeUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	user, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *fakeUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, user := range s.db.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) UpdatePassword(ctx context.Context, id, passwordHash string, now time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	user, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = now
	return nil
}

type fakeAuditStore struct{ db *memDB }

func (s *fakeAuditStore) Create(ctx context.Context, log *model.AuditLog) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.audits = append(s.db.audits, *log)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			Password: config.PasswordConfig{
				MinLength:         12,
				Argon2Memory:      8192,
				Argon2Iterations:  1,
				Argon2Parallelism: 1,
			},
		},
	}
}
