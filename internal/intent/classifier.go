// Package intent turns free-text generation requests into a typed
// IntentClassification by combining a deterministic regex pass with an
// external LLM collaborator's reading of the same prompt.
package intent

import (
	"context"
	"log/slog"
	"time"

	"github.com/storyforge/orchestrator/internal/core"
	"github.com/storyforge/orchestrator/internal/llmclient"
)

// UserPreferences is the stored per-user defaulting fallback, used
// when neither the LLM nor the regex pass produced a value.
type UserPreferences struct {
	PreferredStyle  string
	DefaultQuality  string
	PreferredDuration int
}

// DefaultPreferences mirrors the collaborator's own hardcoded default
// when no stored preference exists for a user.
var DefaultPreferences = UserPreferences{
	PreferredStyle:    "traditional_anime",
	DefaultQuality:    "high",
	PreferredDuration: 5,
}

// Classifier produces an IntentClassification from free text.
type Classifier struct {
	llm *llmclient.Client
}

func NewClassifier(llm *llmclient.Client) *Classifier {
	return &Classifier{llm: llm}
}

// llmClassification is the JSON shape requested from the collaborator;
// fields are pointers so "absent" and "present-but-zero" are distinguishable
// during the merge.
type llmClassification struct {
	ContentType     *string  `json:"content_type"`
	GenerationScope *string  `json:"generation_scope"`
	StylePreference *string  `json:"style_preference"`
	UrgencyLevel    *string  `json:"urgency_level"`
	ComplexityLevel *string  `json:"complexity_level"`
	CharacterNames  []string `json:"character_names"`
	DurationSeconds *int     `json:"duration_seconds"`
	QualityLevel    *string  `json:"quality_level"`
	ConfidenceScore *float64 `json:"confidence_score"`
	AmbiguityFlags  []string `json:"ambiguity_flags"`
	ProcessedPrompt *string  `json:"processed_prompt"`
	TargetWorkflow  *string  `json:"target_workflow"`
}

// Classify runs the pattern pass, asks the LLM collaborator for its
// own reading, and merges the two: the LLM wins per-field when present
// and parseable, else the pattern value, else the user's stored
// preference, else the global default. It never returns an error: when
// the collaborator query fails, the failure is logged and the merge
// proceeds from the pattern pass alone.
func (c *Classifier) Classify(ctx context.Context, userPrompt, userID, requestID string, prefs UserPreferences) core.IntentClassification {
	now := time.Now()

	patternContentType, hasContentType := firstMatch(userPrompt, contentTypePatterns)
	patternScope, hasScope := firstMatch(userPrompt, scopePatterns)
	patternStyle, hasStyle := firstMatch(userPrompt, stylePatterns)
	patternUrgency, hasUrgency := firstMatch(userPrompt, urgencyPatterns)
	patternNames := extractCharacterNames(userPrompt)
	patternDuration := extractDuration(userPrompt)
	patternMatched := hasContentType || hasScope || hasStyle || hasUrgency || len(patternNames) > 0 || patternDuration != nil

	llmResult, llmErr := c.askCollaborator(ctx, userPrompt)
	if llmErr != nil {
		slog.Warn("intent: collaborator query failed, using pattern pass only", "err", llmErr)
	}

	result := core.IntentClassification{
		RequestID:  requestID,
		UserPrompt: userPrompt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	result.ContentType = core.ContentType(pickString(strPtr(llmResult.ContentType), strOf(hasContentType, string(patternContentType)), "", string(core.ContentImage)))
	result.GenerationScope = core.GenerationScope(pickString(strPtr(llmResult.GenerationScope), strOf(hasScope, string(patternScope)), "", string(core.ScopeCharacterProfile)))
	result.StylePreference = pickString(strPtr(llmResult.StylePreference), strOf(hasStyle, patternStyle), prefs.PreferredStyle, DefaultPreferences.PreferredStyle)
	result.UrgencyLevel = core.UrgencyLevel(pickString(strPtr(llmResult.UrgencyLevel), strOf(hasUrgency, string(patternUrgency)), "", string(core.UrgencyStandard)))
	result.ComplexityLevel = core.ComplexityLevel(pickString(strPtr(llmResult.ComplexityLevel), "", "", string(core.ComplexityModerate)))
	result.QualityLevel = pickString(strPtr(llmResult.QualityLevel), "", prefs.DefaultQuality, DefaultPreferences.DefaultQuality)
	result.ProcessedPrompt = pickString(strPtr(llmResult.ProcessedPrompt), "", "", userPrompt)
	result.TargetWorkflow = pickString(strPtr(llmResult.TargetWorkflow), "", "", "")

	if len(llmResult.CharacterNames) > 0 {
		result.CharacterNames = llmResult.CharacterNames
	} else {
		result.CharacterNames = patternNames
	}

	if llmResult.DurationSeconds != nil {
		result.DurationSeconds = llmResult.DurationSeconds
	} else {
		result.DurationSeconds = patternDuration
	}
	if result.ContentType == core.ContentVideo && result.DurationSeconds != nil {
		frames := *result.DurationSeconds * 24
		result.FrameCount = &frames
	}

	switch {
	case llmResult.ConfidenceScore != nil:
		result.ConfidenceScore = *llmResult.ConfidenceScore
	case patternMatched:
		result.ConfidenceScore = 0.7
	default:
		result.ConfidenceScore = 0.3
	}

	if len(llmResult.AmbiguityFlags) > 0 {
		result.AmbiguityFlags = llmResult.AmbiguityFlags
	}

	return result
}

func (c *Classifier) askCollaborator(ctx context.Context, userPrompt string) (llmClassification, error) {
	var parsed llmClassification
	if c.llm == nil {
		return parsed, nil
	}
	ok, err := c.llm.QueryJSON(ctx, classificationPrompt(userPrompt), nil, &parsed)
	if err != nil {
		return llmClassification{}, err
	}
	if !ok {
		return llmClassification{}, nil
	}
	return parsed, nil
}

func classificationPrompt(userPrompt string) string {
	return "Classify this anime production request and respond only with JSON " +
		"containing content_type, generation_scope, style_preference, urgency_level, " +
		"complexity_level, character_names, duration_seconds, quality_level, " +
		"confidence_score, ambiguity_flags, processed_prompt, target_workflow.\n\nRequest: " + userPrompt
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func strOf(present bool, v string) string {
	if !present {
		return ""
	}
	return v
}

// pickString returns the first non-empty candidate in priority order:
// llm, pattern, userPref, globalDefault.
func pickString(llm, pattern, userPref, globalDefault string) string {
	for _, v := range []string{llm, pattern, userPref, globalDefault} {
		if v != "" {
			return v
		}
	}
	return ""
}
