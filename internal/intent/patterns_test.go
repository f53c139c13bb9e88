package intent

import (
	"testing"

	"github.com/storyforge/orchestrator/internal/core"
)

func TestFirstMatchReturnsFirstPriorityCategory(t *testing.T) {
	// "image" and "video" both appear; image is listed first in
	// contentTypePatterns so it must win the pattern-pass tie.
	key, ok := firstMatch("an image or a video", contentTypePatterns)
	if !ok || key != core.ContentImage {
		t.Fatalf("expected image to win priority order, got %v, %v", key, ok)
	}
}

func TestFirstMatchNoMatch(t *testing.T) {
	_, ok := firstMatch("zzz qqq", contentTypePatterns)
	if ok {
		t.Fatal("expected no match")
	}
}

func TestExtractDurationSeconds(t *testing.T) {
	d := extractDuration("a 15 second clip")
	if d == nil || *d != 15 {
		t.Fatalf("expected 15 seconds, got %v", d)
	}
}

func TestExtractDurationMinutesConvertsToSeconds(t *testing.T) {
	d := extractDuration("a 2 minute sequence")
	if d == nil || *d != 120 {
		t.Fatalf("expected 120 seconds, got %v", d)
	}
}

func TestExtractDurationColonFormat(t *testing.T) {
	d := extractDuration("a 1:30 clip")
	if d == nil || *d != 90 {
		t.Fatalf("expected 90 seconds, got %v", d)
	}
}

func TestExtractDurationAbsent(t *testing.T) {
	d := extractDuration("a portrait of Kai")
	if d != nil {
		t.Fatalf("expected nil duration, got %v", *d)
	}
}

func TestExtractCharacterNamesDeduplicates(t *testing.T) {
	names := extractCharacterNames("character named Kai fighting the character named Kai")
	if len(names) != 1 || names[0] != "Kai" {
		t.Fatalf("expected a single deduplicated name Kai, got %v", names)
	}
}

func TestExtractCharacterNamesIgnoresShortMatches(t *testing.T) {
	names := extractCharacterNames("a character named Jo with powers")
	for _, n := range names {
		if len(n) <= 2 {
			t.Fatalf("expected short names to be filtered out, got %v", names)
		}
	}
}
