// Package ambiguity detects and resolves ambiguous requests: a pattern
// library flags issues on a classification, and a priority-ordered
// chain of resolution strategies attempts to settle each one without
// always falling back to asking the user.
package ambiguity

import (
	"strings"

	"github.com/storyforge/orchestrator/internal/core"
)

// Detect runs the pattern library against an IntentClassification and
// returns every ambiguity found. Confidence-based checks always run;
// required-field checks are keyed by content type.
func Detect(c core.IntentClassification) []core.AmbiguityDetection {
	var out []core.AmbiguityDetection

	lowerPrompt := strings.ToLower(c.UserPrompt)
	if strings.Contains(lowerPrompt, "image") && strings.Contains(lowerPrompt, "video") {
		out = append(out, core.AmbiguityDetection{
			Type: core.AmbiguityContentTypeUnclear, Confidence: 0.9,
			Description:    "request mentions both image and video content types",
			AffectedFields: []string{"content_type"},
			Evidence:       []string{"prompt mentions both 'image' and 'video'"},
			Severity:       core.SeverityHigh,
			Blocking:       true,
		})
	}

	switch {
	case c.ConfidenceScore < 0.4:
		out = append(out, core.AmbiguityDetection{
			Type: core.AmbiguityContentTypeUnclear, Confidence: 1 - c.ConfidenceScore,
			Description:    "classification confidence is very low",
			AffectedFields: []string{"content_type", "generation_scope"},
			Evidence:       []string{"confidence_score < 0.4"},
			Severity:       core.SeverityHigh,
			Blocking:       true,
		})
	case c.ConfidenceScore < 0.7:
		out = append(out, core.AmbiguityDetection{
			Type: core.AmbiguityContentTypeUnclear, Confidence: 1 - c.ConfidenceScore,
			Description:    "classification confidence is low",
			AffectedFields: []string{"content_type", "generation_scope"},
			Evidence:       []string{"confidence_score < 0.7"},
			Severity:       core.SeverityMedium,
			Blocking:       false,
		})
	}

	if c.ContentType == core.ContentVideo && c.DurationSeconds == nil {
		out = append(out, core.AmbiguityDetection{
			Type: core.AmbiguityDurationMissing, Confidence: 0.9,
			Description:    "video request has no duration",
			AffectedFields: []string{"duration_seconds"},
			Evidence:       []string{"content_type=video, duration_seconds=null"},
			Severity:       core.SeverityMedium,
			Blocking:       false,
		})
	}

	if len(c.CharacterNames) == 0 && (c.GenerationScope == core.ScopeCharacterProfile || c.GenerationScope == core.ScopeCharacterScene) {
		out = append(out, core.AmbiguityDetection{
			Type: core.AmbiguityCharacterUndefined, Confidence: 0.8,
			Description:    "character-scoped request names no character",
			AffectedFields: []string{"character_names"},
			Evidence:       []string{"generation_scope requires a character, character_names is empty"},
			Severity:       core.SeverityHigh,
			Blocking:       true,
		})
	}

	if c.QualityLevel == "" {
		out = append(out, core.AmbiguityDetection{
			Type: core.AmbiguityQualityVague, Confidence: 0.6,
			Description:    "no quality level specified",
			AffectedFields: []string{"quality_level"},
			Severity:       core.SeverityLow,
			Blocking:       false,
		})
	}

	return out
}
