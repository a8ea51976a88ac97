// Package fingerprint derives a stable opaque identity digest from weak
// client and request attributes.
//
// The digest is deliberately not a security primitive: clients with
// identical browser, OS, and network configuration collide, and that is
// accepted. The one-time activation code is the secret that establishes
// trust; the fingerprint only scopes an already-redeemed trust to one
// configuration of client.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Attributes is the bundle of client/request properties the digest is
// derived from. Missing optional attributes are zero values, not errors.
type Attributes struct {
	UserAgent           string
	AcceptLanguage      string
	AcceptEncoding      string
	ScreenWidth         int
	ScreenHeight        int
	Timezone            string
	Platform            string
	HardwareConcurrency int
	RemoteIP            string
}

// Derive produces a fixed-length hex digest from the attribute tuple.
// Identical tuples always yield identical digests; changing any single
// attribute changes the digest with overwhelming probability.
func Derive(attrs Attributes) string {
	components := []string{
		attrs.UserAgent,
		attrs.AcceptLanguage,
		attrs.AcceptEncoding,
		strconv.Itoa(attrs.ScreenWidth),
		strconv.Itoa(attrs.ScreenHeight),
		attrs.Timezone,
		attrs.Platform,
		strconv.Itoa(attrs.HardwareConcurrency),
		attrs.RemoteIP,
	}

	input := strings.Join(components, "|")
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
