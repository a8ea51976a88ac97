package service

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	t.Parallel()

	id := generateID("dev")
	if !strings.HasPrefix(id, "dev_") {
		t.Errorf("generateID(\"dev\") = %q, want dev_ prefix", id)
	}
	if len(id) != len("dev")+1+26 {
		t.Errorf("len(%q) = %d, want %d", id, len(id), len("dev")+1+26)
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		next := generateID("cod")
		if seen[next] {
			t.Fatalf("duplicate identifier generated: %s", next)
		}
		seen[next] = true
	}
}
