package util

import (
	"strings"
	"testing"
)

func TestGenerateStepID(t *testing.T) {
	id := GenerateStepID()
	if !strings.HasPrefix(id, StepIDPrefix) {
		t.Errorf("expected %q prefix, got %q", StepIDPrefix, id)
	}
	if len(id) != len(StepIDPrefix)+DocumentIDLength {
		t.Errorf("unexpected id length: %q", id)
	}
}

func TestGenerateOptionID(t *testing.T) {
	id := GenerateOptionID()
	if !strings.HasPrefix(id, OptionIDPrefix) {
		t.Errorf("expected %q prefix, got %q", OptionIDPrefix, id)
	}
}

func TestDocumentIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateStepID()
		if seen[id] {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = true
	}
}

func TestGenerateFunnelIDSortable(t *testing.T) {
	a := GenerateFunnelID()
	b := GenerateFunnelID()
	if !strings.HasPrefix(a, "fn_") || !strings.HasPrefix(b, "fn_") {
		t.Fatalf("expected fn_ prefix, got %q and %q", a, b)
	}
	// ULIDs generated in sequence must not collide.
	if a == b {
		t.Errorf("consecutive funnel ids collided: %q", a)
	}
}

func TestGenerateRandomAlphaNumericZeroLength(t *testing.T) {
	if got := GenerateRandomAlphaNumeric(0); got != "" {
		t.Errorf("expected empty string for zero length, got %q", got)
	}
	if got := GenerateRandomAlphaNumeric(-3); got != "" {
		t.Errorf("expected empty string for negative length, got %q", got)
	}
}

func TestGenerateShareToken(t *testing.T) {
	tok := GenerateShareToken()
	if len(tok) != 16 {
		t.Errorf("expected 16-char share token, got %q", tok)
	}
}
