package core

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID("job")
	if !strings.HasPrefix(id, "job-") {
		t.Fatalf("expected prefix 'job-', got %q", id)
	}
	if len(id) != len("job-")+16 {
		t.Fatalf("expected 16 hex chars after prefix, got %q", id)
	}

	id2 := GenerateID("job")
	if id == id2 {
		t.Fatalf("expected distinct IDs, got %q twice", id)
	}
}
