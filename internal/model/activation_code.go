package model

import (
	"strings"
	"time"
)

// ActivationCode is a single-use secret that admits one device into the
// trust store. The code column always holds the canonical form produced
// by NormalizeCode; the dash-grouped display form is shown to the
// operator exactly once, at generation time.
type ActivationCode struct {
	ID                string     `json:"id"`
	Code              string     `json:"-"` // canonical form, never exposed after creation
	Label             *string    `json:"label,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	UsedAt            *time.Time `json:"usedAt,omitempty"`
	UsedByFingerprint *string    `json:"usedByFingerprint,omitempty"`
	Active            bool       `json:"active"`
}

// IsUsed reports whether the code has already been redeemed
func (c *ActivationCode) IsUsed() bool {
	return c.UsedAt != nil
}

// IsExpired reports whether the code's validity window has passed.
// A nil ExpiresAt means the code never expires.
func (c *ActivationCode) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// DaysRemaining returns the number of whole days until expiry, rounded
// up, or nil when the code never expires. Expired codes report 0.
func (c *ActivationCode) DaysRemaining(now time.Time) *int {
	if c.ExpiresAt == nil {
		return nil
	}
	days := 0
	if remaining := c.ExpiresAt.Sub(now); remaining > 0 {
		days = int((remaining + 24*time.Hour - 1) / (24 * time.Hour))
	}
	return &days
}

// NormalizeCode reduces a submitted code to its canonical comparison
// form: separators and any other non-alphanumeric characters are
// stripped and letters are uppercased, so "ab12-cd34" and "AB12CD34"
// compare equal.
func NormalizeCode(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		}
	}
	return b.String()
}

// FormatCode renders a canonical code in dash-separated groups of four
// for display, e.g. "AB12-CD34-EF56".
func FormatCode(canonical string) string {
	var groups []string
	for i := 0; i < len(canonical); i += 4 {
		end := i + 4
		if end > len(canonical) {
			end = len(canonical)
		}
		groups = append(groups, canonical[i:end])
	}
	return strings.Join(groups, "-")
}
