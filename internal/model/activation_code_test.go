package model

import (
	"testing"
	"time"
)

func TestNormalizeCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "AB12CD34", "AB12CD34"},
		{"lowercase", "ab12cd34", "AB12CD34"},
		{"dashed", "AB12-CD34", "AB12CD34"},
		{"spaced", " ab12 cd34 ", "AB12CD34"},
		{"mixed separators", "ab.12_cd/34", "AB12CD34"},
		{"only separators", "----", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCode(tt.in); got != tt.want {
				t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Any rendering a user might type back in must normalize to the stored
// canonical form.
func TestNormalizeCodeMatchesStoredForm(t *testing.T) {
	t.Parallel()
	stored := "AB12CD34EF56AB12CD34EF560000000A"
	inputs := []string{
		"AB12CD34EF56AB12CD34EF560000000A",
		"ab12cd34ef56ab12cd34ef560000000a",
		"ab12-cd34-ef56-ab12-cd34-ef56-0000-000a",
		"AB12 CD34 EF56 AB12 CD34 EF56 0000 000A",
		FormatCode(stored),
	}
	for _, in := range inputs {
		if got := NormalizeCode(in); got != stored {
			t.Errorf("NormalizeCode(%q) = %q, want %q", in, got, stored)
		}
	}
}

func TestFormatCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"AB12CD34", "AB12-CD34"},
		{"AB12CD34EF", "AB12-CD34-EF"},
		{"AB", "AB"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatCode(tt.in); got != tt.want {
			t.Errorf("FormatCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsExpired(t *testing.T) {
	t.Parallel()
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	if (&ActivationCode{}).IsExpired(now) {
		t.Error("a code without expiry never expires")
	}
	if (&ActivationCode{ExpiresAt: &future}).IsExpired(now) {
		t.Error("code should not be expired before its deadline")
	}
	if !(&ActivationCode{ExpiresAt: &past}).IsExpired(now) {
		t.Error("code should be expired after its deadline")
	}
	// The deadline instant itself is still valid.
	if (&ActivationCode{ExpiresAt: &now}).IsExpired(now) {
		t.Error("code should still be valid at the exact deadline")
	}
}

func TestDaysRemaining(t *testing.T) {
	t.Parallel()
	now := time.Now()

	if got := (&ActivationCode{}).DaysRemaining(now); got != nil {
		t.Errorf("DaysRemaining without expiry = %v, want nil", got)
	}

	halfDay := now.Add(12 * time.Hour)
	if got := (&ActivationCode{ExpiresAt: &halfDay}).DaysRemaining(now); got == nil || *got != 1 {
		t.Errorf("DaysRemaining(12h) = %v, want 1", got)
	}

	twoAndABit := now.Add(49 * time.Hour)
	if got := (&ActivationCode{ExpiresAt: &twoAndABit}).DaysRemaining(now); got == nil || *got != 3 {
		t.Errorf("DaysRemaining(49h) = %v, want 3", got)
	}

	past := now.Add(-time.Hour)
	if got := (&ActivationCode{ExpiresAt: &past}).DaysRemaining(now); got == nil || *got != 0 {
		t.Errorf("DaysRemaining(expired) = %v, want 0", got)
	}
}
