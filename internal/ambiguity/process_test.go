package ambiguity

import (
	"testing"

	"github.com/storyforge/orchestrator/internal/core"
)

func TestProcessNoAmbiguitiesFullConfidence(t *testing.T) {
	c := core.IntentClassification{
		UserPrompt: "a portrait of Kai", ConfidenceScore: 0.95,
		GenerationScope: core.ScopeCharacterProfile, CharacterNames: []string{"Kai"},
		QualityLevel: "high",
	}
	report := Process(c)
	if report.HasAmbiguities {
		t.Fatalf("expected no ambiguities, got %+v", report.Ambiguities)
	}
	if report.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0 with no ambiguities, got %f", report.Confidence)
	}
}

// TestProcessBlockingAmbiguityRequiresInteraction: a prompt naming both
// "image" and "video" raises a blocking content_type_unclear ambiguity,
// which surfaces requires_user_interaction and is listed under
// blocking_issues.
func TestProcessBlockingAmbiguityRequiresInteraction(t *testing.T) {
	c := core.IntentClassification{
		UserPrompt: "Make me an image or a video of Kai", ConfidenceScore: 0.9,
		GenerationScope: core.ScopeCharacterProfile, CharacterNames: []string{"Kai"},
		QualityLevel: "high",
	}
	report := Process(c)
	if !report.HasAmbiguities {
		t.Fatal("expected ambiguities to be detected")
	}
	if !report.RequiresUserInteraction {
		t.Fatal("expected requires_user_interaction=true for a blocking ambiguity")
	}
	if len(report.BlockingIssues) == 0 {
		t.Fatal("expected at least one blocking issue")
	}
}

func TestProcessAmbiguousVideoAutoResolves(t *testing.T) {
	c := core.IntentClassification{
		UserPrompt: "Create a video", ConfidenceScore: 0.45,
		ContentType: core.ContentVideo, QualityLevel: "high",
	}
	report := Process(c)
	if !report.HasAmbiguities {
		t.Fatal("expected ambiguities to be detected")
	}
	if report.RequiresUserInteraction {
		t.Fatal("expected this case to auto-resolve without user interaction")
	}
	found := false
	for _, r := range report.Resolutions {
		if r.AmbiguityType == core.AmbiguityDurationMissing && r.ResolvedValue == 10 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an intelligent default of 10s for duration_missing, got %+v", report.Resolutions)
	}
}

func TestProcessConfidenceIsInteractionWeightedMean(t *testing.T) {
	c := core.IntentClassification{
		UserPrompt: "a quiet scene", ConfidenceScore: 0.5,
	}
	report := Process(c)
	if report.Confidence <= 0 || report.Confidence > 1 {
		t.Fatalf("expected confidence in (0,1], got %f", report.Confidence)
	}
}
