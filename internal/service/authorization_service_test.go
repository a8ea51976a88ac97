package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gatedesk/gatedesk/internal/model"
)

func newAuthzFixture(t *testing.T) (*memDB, *AuthorizationService) {
	t.Helper()
	db := newMemDB()
	svc := NewAuthorizationService(
		&fakeCodeStore{db: db},
		&fakeRedemptionStore{db: db},
		&fakeAuditStore{db: db},
		nil,
		testConfig(),
		testLogger(),
	)
	return db, svc
}

func seedCode(db *memDB, canonical string, expiresAt *time.Time, active bool) *model.ActivationCode {
	code := &model.ActivationCode{
		ID:        "cod_" + canonical[:8],
		Code:      canonical,
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: expiresAt,
		Active:    active,
	}
	db.mu.Lock()
	db.codes[code.ID] = code
	db.mu.Unlock()
	return code
}

func TestAuthorizeAdmitsNewDevice(t *testing.T) {
	t.Parallel()
	db, svc := newAuthzFixture(t)
	seedCode(db, "ABCD1234EF567890ABCD1234EF567890", nil, true)

	result, err := svc.Authorize(context.Background(), AuthorizeRequest{
		RawCode:     "ABCD1234EF567890ABCD1234EF567890",
		Fingerprint: "fp-1",
		UserAgent:   "kiosk/1.0",
		IPAddress:   "10.0.0.5",
	})
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if !result.NewDevice {
		t.Error("expected NewDevice to be true for a first admission")
	}
	if !result.Device.Active {
		t.Error("admitted device should be active")
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.devices) != 1 {
		t.Fatalf("expected 1 device in store, got %d", len(db.devices))
	}
	for _, code := range db.codes {
		if code.UsedAt == nil {
			t.Error("code should be marked used after redemption")
		}
		if code.UsedByFingerprint == nil || *code.UsedByFingerprint != "fp-1" {
			t.Error("code should record the redeeming fingerprint")
		}
	}
}

func TestAuthorizeCodeMatchingIgnoresCaseAndSeparators(t *testing.T) {
	t.Parallel()
	db, svc := newAuthzFixture(t)
	seedCode(db, "AB12CD34EF56AB12CD34EF560000000A", nil, true)

	result, err := svc.Authorize(context.Background(), AuthorizeRequest{
		RawCode:     "ab12-cd34-ef56-ab12-cd34-ef56-0000-000a",
		Fingerprint: "fp-1",
	})
	if err != nil {
		t.Fatalf("Authorize() with dashed lowercase input error = %v", err)
	}
	if result.Device == nil {
		t.Fatal("expected a device")
	}
}

func TestAuthorizeUnknownCode(t *testing.T) {
	t.Parallel()
	db, svc := newAuthzFixture(t)
	seedCode(db, "ABCD1234EF567890ABCD1234EF567890", nil, true)

	_, err := svc.Authorize(context.Background(), AuthorizeRequest{
		RawCode:     "FFFF0000FFFF0000FFFF0000FFFF0000",
		Fingerprint: "fp-1",
	})
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("Authorize() error = %v, want ErrInvalidCode", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.devices) != 0 {
		t.Error("a failed redemption must not create a device")
	}
	for _, code := range db.codes {
		if code.UsedAt != nil {
			t.Error("a failed redemption must not consume the code")
		}
	}
}

func TestAuthorizeEmptyCode(t *testing.T) {
	t.Parallel()
	_, svc := newAuthzFixture(t)

	_, err := svc.Authorize(context.Background(), AuthorizeRequest{RawCode: "---", Fingerprint: "fp-1"})
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("Authorize() error = %v, want ErrInvalidCode", err)
	}
}

func TestAuthorizeDeactivatedCode(t *testing.T) {
	t.Parallel()
	db, svc := newAuthzFixture(t)
	seedCode(db, "ABCD1234EF567890ABCD1234EF567890", nil, false)

	_, err := svc.Authorize(context.Background(), AuthorizeRequest{
		RawCode:     "ABCD1234EF567890ABCD1234EF567890",
		Fingerprint: "fp-1",
	})
	if !errors.Is(err, ErrCodeDeactivated) {
		t.Fatalf("Authorize() error = %v, want ErrCodeDeactivated", err)
	}
}

func TestAuthorizeExpiredCode(t *testing.T) {
	t.Parallel()
	db, svc := newAuthzFixture(t)
	expired := time.Now().Add(-time.Minute)
	seedCode(db, "ABCD1234EF567890ABCD1234EF567890", &expired, true)

	_, err := svc.Authorize(context.Background(), AuthorizeRequest{
		RawCode:     "ABCD1234EF567890ABCD1234EF567890",
		Fingerprint: "fp-1",
	})
	if !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("Authorize() error = %v, want ErrCodeExpired", err)
	}
}

func TestAuthorizeUsedCode(t *testing.T) {
	t.Parallel()
	db, svc := newAuthzFixture(t)
	code := seedCode(db, "ABCD1234EF567890ABCD1234EF567890", nil, true)

	used := time.Now().Add(-time.Minute)
	db.mu.Lock()
	db.codes[code.ID].UsedAt = &used
	db.mu.Unlock()

	_, err := svc.Authorize(context.Background(), AuthorizeRequest{
		RawCode:     "ABCD1234EF567890ABCD1234EF567890",
		Fingerprint: "fp-2",
	})
	if !errors.Is(err, ErrCodeAlreadyUsed) {
		t.Fatalf("Authorize() error = %v, want ErrCodeAlreadyUsed", err)
	}
}

// Concurrent redemption of the same code must admit exactly one device;
// every other attempt fails with ErrCodeAlreadyUsed and leaves nothing
// behind.
func TestAuthorizeConcurrentSingleUse(t *testing.T) {
	t.Parallel()
	db, svc := newAuthzFixture(t)
	seedCode(db, "ABCD1234EF567890ABCD1234EF567890", nil, true)

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Authorize(context.Background(), AuthorizeRequest{
				RawCode:     "ABCD1234EF567890ABCD1234EF567890",
				Fingerprint: fmt.Sprintf("fp-%d", i),
			})
			errs[i] = err
		}(i)
	}
	wg.Wait()

	successes := 0
	for i, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrCodeAlreadyUsed):
		default:
			t.Errorf("attempt %d: unexpected error %v", i, err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 successful redemption, got %d", successes)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.devices) != 1 {
		t.Fatalf("expected exactly 1 device in store, got %d", len(db.devices))
	}
}

// Redeeming a second code from an already-known fingerprint refreshes
// the existing device instead of creating another one.
func TestAuthorizeExistingFingerprintKeepsIdentity(t *testing.T) {
	t.Parallel()
	db, svc := newAuthzFixture(t)
	seedCode(db, "AAAA1234EF567890ABCD1234EF567890", nil, true)
	second := seedCode(db, "BBBB1234EF567890ABCD1234EF567890", nil, true)

	first, err := svc.Authorize(context.Background(), AuthorizeRequest{
		RawCode:     "AAAA1234EF567890ABCD1234EF567890",
		Fingerprint: "fp-1",
	})
	if err != nil {
		t.Fatalf("first Authorize() error = %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	refreshed, err := svc.Authorize(context.Background(), AuthorizeRequest{
		RawCode:     "BBBB1234EF567890ABCD1234EF567890",
		Fingerprint: "fp-1",
	})
	if err != nil {
		t.Fatalf("second Authorize() error = %v", err)
	}

	if refreshed.NewDevice {
		t.Error("refreshing a known fingerprint should not report a new device")
	}
	if refreshed.Device.ID != first.Device.ID {
		t.Errorf("device ID changed across redemptions: %q vs %q", first.Device.ID, refreshed.Device.ID)
	}
	if !refreshed.Device.FirstAuthorizedAt.Equal(first.Device.FirstAuthorizedAt) {
		t.Error("FirstAuthorizedAt must not change when a device is refreshed")
	}
	if refreshed.Device.ActivationCodeID == nil || *refreshed.Device.ActivationCodeID != second.ID {
		t.Error("device should be re-linked to the most recent admitting code")
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.devices) != 1 {
		t.Fatalf("expected 1 device in store, got %d", len(db.devices))
	}
}
