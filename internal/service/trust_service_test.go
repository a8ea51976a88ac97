package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gatedesk/gatedesk/internal/model"
)

func newTrustFixture(t *testing.T) (*memDB, *TrustService) {
	t.Helper()
	db := newMemDB()
	svc := NewTrustService(
		&fakeDeviceStore{db: db},
		&fakeCodeStore{db: db},
		&fakeAuditStore{db: db},
		testLogger(),
	)
	return db, svc
}

func seedDevice(db *memDB, fp string, codeID *string, active bool) *model.Device {
	device := &model.Device{
		ID:                "dev_" + fp,
		Fingerprint:       fp,
		FirstAuthorizedAt: time.Now().Add(-24 * time.Hour),
		LastSeenAt:        time.Now().Add(-time.Hour),
		Active:            active,
		ActivationCodeID:  codeID,
	}
	db.mu.Lock()
	db.devices[device.ID] = device
	db.mu.Unlock()
	return device
}

func TestVerifyUnknownFingerprint(t *testing.T) {
	t.Parallel()
	_, svc := newTrustFixture(t)

	_, err := svc.Verify(context.Background(), "fp-unknown")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Verify() error = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyActiveDevice(t *testing.T) {
	t.Parallel()
	db, svc := newTrustFixture(t)
	code := seedCode(db, "ABCD1234EF567890ABCD1234EF567890", nil, true)
	seedDevice(db, "fp-1", &code.ID, true)

	verifyTime := time.Now().Add(time.Minute)
	svc.now = func() time.Time { return verifyTime }

	device, err := svc.Verify(context.Background(), "fp-1")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !device.LastSeenAt.Equal(verifyTime) {
		t.Error("Verify should bump LastSeenAt")
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.devices[device.ID].LastSeenAt.Equal(verifyTime) {
		t.Error("LastSeenAt bump should be persisted")
	}
}

func TestVerifyDeactivatedDevice(t *testing.T) {
	t.Parallel()
	db, svc := newTrustFixture(t)
	seedDevice(db, "fp-1", nil, false)

	_, err := svc.Verify(context.Background(), "fp-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Verify() error = %v, want ErrUnauthorized", err)
	}
}

// A device with no linked code was admitted before code links existed
// or had its link cleared; nothing can revoke it through the cascade.
func TestVerifyUnlinkedDeviceStaysTrusted(t *testing.T) {
	t.Parallel()
	db, svc := newTrustFixture(t)
	seedDevice(db, "fp-1", nil, true)

	if _, err := svc.Verify(context.Background(), "fp-1"); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}

// Deactivating a code does not touch its device until that device is
// next verified. The first Verify after the deactivation both rejects
// the device and persists the deactivation.
func TestVerifyCascadesDeactivatedCode(t *testing.T) {
	t.Parallel()
	db, svc := newTrustFixture(t)
	code := seedCode(db, "ABCD1234EF567890ABCD1234EF567890", nil, true)
	device := seedDevice(db, "fp-1", &code.ID, true)

	db.mu.Lock()
	db.codes[code.ID].Active = false
	stillActive := db.devices[device.ID].Active
	db.mu.Unlock()
	if !stillActive {
		t.Fatal("device must remain active in storage until its next verification")
	}

	_, err := svc.Verify(context.Background(), "fp-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Verify() error = %v, want ErrUnauthorized", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.devices[device.ID].Active {
		t.Error("the failed verification should persist the device deactivation")
	}
}

func TestVerifyCascadesExpiredCode(t *testing.T) {
	t.Parallel()
	db, svc := newTrustFixture(t)
	expiry := time.Now().Add(time.Hour)
	code := seedCode(db, "ABCD1234EF567890ABCD1234EF567890", &expiry, true)
	device := seedDevice(db, "fp-1", &code.ID, true)

	// Before expiry the device verifies fine.
	if _, err := svc.Verify(context.Background(), "fp-1"); err != nil {
		t.Fatalf("Verify() before expiry error = %v", err)
	}

	svc.now = func() time.Time { return expiry.Add(time.Minute) }

	_, err := svc.Verify(context.Background(), "fp-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Verify() after expiry error = %v, want ErrUnauthorized", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.devices[device.ID].Active {
		t.Error("expired code should cascade-deactivate the device on verification")
	}
}

// A hard-deleted code leaves a dangling link on any device the cascade
// missed; verification treats that exactly like a lapsed code.
func TestVerifyDanglingCodeLink(t *testing.T) {
	t.Parallel()
	db, svc := newTrustFixture(t)
	codeID := "cod_gone"
	device := seedDevice(db, "fp-1", &codeID, true)

	_, err := svc.Verify(context.Background(), "fp-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Verify() error = %v, want ErrUnauthorized", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.devices[device.ID].Active {
		t.Error("a dangling code link should revoke the device")
	}
}

func TestCascadePermits(t *testing.T) {
	t.Parallel()
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		code *model.ActivationCode
		want bool
	}{
		{"nil code", nil, false},
		{"active no expiry", &model.ActivationCode{Active: true}, true},
		{"active unexpired", &model.ActivationCode{Active: true, ExpiresAt: &future}, true},
		{"deactivated", &model.ActivationCode{Active: false}, false},
		{"expired", &model.ActivationCode{Active: true, ExpiresAt: &past}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cascadePermits(tt.code, now); got != tt.want {
				t.Errorf("cascadePermits() = %v, want %v", got, tt.want)
			}
		})
	}
}
