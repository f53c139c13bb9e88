package api

import (
	"strings"
	"testing"

	"github.com/storyforge/orchestrator/internal/apperr"
)

func TestValidateID(t *testing.T) {
	if err := validateID("project_id", "abc-123"); err != nil {
		t.Fatalf("expected valid id to pass, got %v", err)
	}
	if err := validateID("project_id", strings.Repeat("a", 50)); err != nil {
		t.Fatalf("expected 50-char id to pass, got %v", err)
	}
	if err := validateID("project_id", strings.Repeat("a", 51)); err == nil {
		t.Fatal("expected 51-char id to be rejected")
	}
	if err := validateID("project_id", "slug'; DROP TABLE x"); err == nil {
		t.Fatal("expected SQL-injection-shaped id to be rejected")
	} else if !apperr.Is(err, apperr.BadInput) {
		t.Fatalf("expected BadInput, got %v", err)
	}
	if err := validateID("project_id", ""); err == nil {
		t.Fatal("expected empty id to be rejected")
	}
}

func TestSanitizePromptLengthBoundary(t *testing.T) {
	if _, err := sanitizePrompt("prompt", strings.Repeat("a", 1000)); err != nil {
		t.Fatalf("expected length 1000 to be accepted, got %v", err)
	}
	if _, err := sanitizePrompt("prompt", strings.Repeat("a", 1001)); err == nil {
		t.Fatal("expected length 1001 to be rejected")
	}
}

func TestSanitizePromptStripsControlCharacters(t *testing.T) {
	in := "hello\x00world\x01\n\ttab"
	out, err := sanitizePrompt("prompt", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.ContainsRune(out, 0) || strings.ContainsRune(out, 1) {
		t.Fatalf("expected NUL/control chars stripped, got %q", out)
	}
	if !strings.Contains(out, "\n") || !strings.Contains(out, "\t") {
		t.Fatalf("expected newline/tab preserved, got %q", out)
	}
}

func TestValidateDimensionBoundary(t *testing.T) {
	if _, err := validateDimension("width", 63); err == nil {
		t.Fatal("expected 63 to be rejected")
	}
	got, err := validateDimension("width", 64)
	if err != nil || got != 64 {
		t.Fatalf("expected 64 accepted as 64, got (%d, %v)", got, err)
	}
	if _, err := validateDimension("width", 2049); err == nil {
		t.Fatal("expected 2049 to be rejected")
	}
	got, err = validateDimension("width", 2048)
	if err != nil || got != 2048 {
		t.Fatalf("expected 2048 accepted as 2048, got (%d, %v)", got, err)
	}
}

func TestValidateDimensionRoundsDown(t *testing.T) {
	got, err := validateDimension("width", 700)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 640 {
		t.Fatalf("expected 700 to round down to 640, got %d", got)
	}
}

func TestValidateDurationBoundary(t *testing.T) {
	if err := validateDuration(0); err == nil {
		t.Fatal("expected 0 to be rejected")
	}
	if err := validateDuration(1); err != nil {
		t.Fatalf("expected 1 to be accepted, got %v", err)
	}
	if err := validateDuration(300); err != nil {
		t.Fatalf("expected 300 to be accepted, got %v", err)
	}
	if err := validateDuration(301); err == nil {
		t.Fatal("expected 301 to be rejected")
	}
}
