package fingerprint

import (
	"regexp"
	"testing"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestDeriveIsDeterministic(t *testing.T) {
	t.Parallel()
	attrs := Attributes{
		UserAgent:           "Mozilla/5.0",
		AcceptLanguage:      "en-US,en;q=0.9",
		AcceptEncoding:      "gzip, deflate, br",
		ScreenWidth:         1920,
		ScreenHeight:        1080,
		Timezone:            "America/New_York",
		Platform:            "MacIntel",
		HardwareConcurrency: 8,
		RemoteIP:            "203.0.113.7",
	}

	first := Derive(attrs)
	second := Derive(attrs)
	if first != second {
		t.Errorf("same attributes produced different digests: %s vs %s", first, second)
	}
	if !hexDigest.MatchString(first) {
		t.Errorf("digest %q is not 64 hex characters", first)
	}
}

func TestDeriveChangesWithAnyAttribute(t *testing.T) {
	t.Parallel()
	base := Attributes{
		UserAgent:    "Mozilla/5.0",
		ScreenWidth:  1920,
		ScreenHeight: 1080,
		Timezone:     "UTC",
		RemoteIP:     "203.0.113.7",
	}
	baseDigest := Derive(base)

	variants := []Attributes{}

	v := base
	v.UserAgent = "curl/8.0"
	variants = append(variants, v)

	v = base
	v.ScreenWidth = 2560
	variants = append(variants, v)

	v = base
	v.Timezone = "Europe/Berlin"
	variants = append(variants, v)

	v = base
	v.RemoteIP = "203.0.113.8"
	variants = append(variants, v)

	for i, variant := range variants {
		if Derive(variant) == baseDigest {
			t.Errorf("variant %d produced the same digest as the base attributes", i)
		}
	}
}

func TestDeriveEmptyAttributes(t *testing.T) {
	t.Parallel()
	digest := Derive(Attributes{})
	if !hexDigest.MatchString(digest) {
		t.Errorf("empty attributes should still yield a digest, got %q", digest)
	}
}
