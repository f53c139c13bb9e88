package intent

import (
	"context"
	"testing"

	"github.com/storyforge/orchestrator/internal/core"
)

func TestClassifyFallsBackToPatternPassWithoutCollaborator(t *testing.T) {
	c := NewClassifier(nil)
	result := c.Classify(context.Background(), "Create a 10 second video of Kai running", "user-1", "req-1", DefaultPreferences)

	if result.ContentType != core.ContentVideo {
		t.Fatalf("expected content_type=video, got %v", result.ContentType)
	}
	if result.DurationSeconds == nil || *result.DurationSeconds != 10 {
		t.Fatalf("expected duration_seconds=10, got %v", result.DurationSeconds)
	}
	if result.FrameCount == nil || *result.FrameCount != 240 {
		t.Fatalf("expected frame_count=240 (10s * 24fps), got %v", result.FrameCount)
	}
	if result.ConfidenceScore != 0.7 {
		t.Fatalf("expected confidence 0.7 on a matched pattern pass, got %f", result.ConfidenceScore)
	}
}

func TestClassifyUnmatchedPromptUsesGlobalDefaults(t *testing.T) {
	c := NewClassifier(nil)
	result := c.Classify(context.Background(), "zzz qqq xyzzy", "user-1", "req-1", UserPreferences{})

	if result.ContentType != core.ContentImage {
		t.Fatalf("expected default content_type=image, got %v", result.ContentType)
	}
	if result.GenerationScope != core.ScopeCharacterProfile {
		t.Fatalf("expected default scope=character_profile, got %v", result.GenerationScope)
	}
	if result.StylePreference != DefaultPreferences.PreferredStyle {
		t.Fatalf("expected global default style, got %v", result.StylePreference)
	}
	if result.ConfidenceScore != 0.3 {
		t.Fatalf("expected confidence 0.3 on an unmatched pattern pass, got %f", result.ConfidenceScore)
	}
}

func TestClassifyUserPreferencesFillGapsBeforeGlobalDefault(t *testing.T) {
	c := NewClassifier(nil)
	prefs := UserPreferences{PreferredStyle: "cinematic", DefaultQuality: "draft"}
	result := c.Classify(context.Background(), "zzz qqq xyzzy", "user-1", "req-1", prefs)

	if result.StylePreference != "cinematic" {
		t.Fatalf("expected user preference to win over global default, got %v", result.StylePreference)
	}
	if result.QualityLevel != "draft" {
		t.Fatalf("expected user quality preference to win, got %v", result.QualityLevel)
	}
}

func TestClassifyNoFrameCountForImageRequests(t *testing.T) {
	c := NewClassifier(nil)
	result := c.Classify(context.Background(), "a portrait of Kai", "user-1", "req-1", DefaultPreferences)
	if result.FrameCount != nil {
		t.Fatalf("expected no frame_count for an image request, got %v", *result.FrameCount)
	}
}

func TestPerformContextualAnalysisWithoutCollaboratorReturnsZeroValue(t *testing.T) {
	c := NewClassifier(nil)
	analysis := c.PerformContextualAnalysis(context.Background(), "a quiet scene")
	if analysis.IntentConfidence != 0 {
		t.Fatalf("expected zero-value analysis without a collaborator, got %+v", analysis)
	}
	if analysis.SemanticCategories != nil {
		t.Fatalf("expected nil semantic categories, got %v", analysis.SemanticCategories)
	}
}
