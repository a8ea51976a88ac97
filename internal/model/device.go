package model

import "time"

// Device is a trusted client admitted by redeeming an activation code.
// The fingerprint is a weak, collision-tolerant digest of client
// attributes: it re-identifies an already-admitted device but never
// establishes trust on its own. ActivationCodeID points at the code
// that most recently admitted or re-admitted the device; when that code
// expires or is deactivated the device is deactivated the next time it
// is verified.
type Device struct {
	ID                string    `json:"id"`
	Fingerprint       string    `json:"fingerprint"`
	Label             *string   `json:"label,omitempty"`
	LastSeenUserAgent *string   `json:"lastSeenUserAgent,omitempty"`
	LastSeenIP        *string   `json:"lastSeenIp,omitempty"`
	FirstAuthorizedAt time.Time `json:"firstAuthorizedAt"`
	LastSeenAt        time.Time `json:"lastSeenAt"`
	Active            bool      `json:"active"`
	ActivationCodeID  *string   `json:"activationCodeId,omitempty"`
}
