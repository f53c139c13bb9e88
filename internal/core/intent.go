package core

import "time"

// ContentType is the kind of media a request is asking for.
type ContentType string

const (
	ContentImage       ContentType = "image"
	ContentVideo       ContentType = "video"
	ContentAudio       ContentType = "audio"
	ContentMixedMedia  ContentType = "mixed_media"
)

// GenerationScope is the breadth of a requested generation.
type GenerationScope string

const (
	ScopeCharacterProfile GenerationScope = "character_profile"
	ScopeCharacterScene   GenerationScope = "character_scene"
	ScopeEnvironment      GenerationScope = "environment"
	ScopeActionSequence   GenerationScope = "action_sequence"
	ScopeDialogueScene    GenerationScope = "dialogue_scene"
	ScopeFullEpisode      GenerationScope = "full_episode"
	ScopeBatchGeneration  GenerationScope = "batch_generation"
)

// UrgencyLevel is how quickly a request should be serviced.
type UrgencyLevel string

const (
	UrgencyImmediate       UrgencyLevel = "immediate"
	UrgencyUrgent          UrgencyLevel = "urgent"
	UrgencyStandard        UrgencyLevel = "standard"
	UrgencyScheduled       UrgencyLevel = "scheduled"
	UrgencyBatchProcessing UrgencyLevel = "batch_processing"
)

// ComplexityLevel is an estimate of how demanding a request is.
type ComplexityLevel string

const (
	ComplexitySimple   ComplexityLevel = "simple"
	ComplexityModerate ComplexityLevel = "moderate"
	ComplexityComplex  ComplexityLevel = "complex"
	ComplexityExpert   ComplexityLevel = "expert"
)

// IntentClassification is the typed plan derived from a free-text request.
type IntentClassification struct {
	RequestID            string          `json:"request_id"`
	ContentType          ContentType     `json:"content_type"`
	GenerationScope       GenerationScope `json:"generation_scope"`
	StylePreference       string          `json:"style_preference,omitempty"`
	UrgencyLevel          UrgencyLevel    `json:"urgency_level"`
	ComplexityLevel       ComplexityLevel `json:"complexity_level"`
	CharacterNames        []string        `json:"character_names,omitempty"`
	DurationSeconds       *int            `json:"duration_seconds,omitempty"`
	FrameCount            *int            `json:"frame_count,omitempty"`
	Resolution            string          `json:"resolution,omitempty"`
	AspectRatio           string          `json:"aspect_ratio,omitempty"`
	QualityLevel          string          `json:"quality_level,omitempty"`
	PostProcessing        []string        `json:"post_processing,omitempty"`
	OutputFormat          string          `json:"output_format,omitempty"`
	TargetService         string          `json:"target_service,omitempty"`
	TargetWorkflow        string          `json:"target_workflow,omitempty"`
	EstimatedTimeMinutes  float64         `json:"estimated_time_minutes,omitempty"`
	EstimatedVRAMGB       float64         `json:"estimated_vram_gb,omitempty"`
	UserPrompt            string          `json:"user_prompt"`
	ProcessedPrompt       string          `json:"processed_prompt,omitempty"`
	ConfidenceScore       float64         `json:"confidence_score"`
	AmbiguityFlags        []string        `json:"ambiguity_flags,omitempty"`
	FallbackOptions       []string        `json:"fallback_options,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// CharacterEntity is one character mention surfaced by contextual analysis.
type CharacterEntity struct {
	Name               string         `json:"name"`
	PhysicalDescription string        `json:"physical_description,omitempty"`
	PersonalityTraits  []string       `json:"personality_traits,omitempty"`
	Role               string         `json:"role,omitempty"`
	Relationships      map[string]string `json:"relationships,omitempty"`
	Confidence         float64        `json:"confidence"`
	ContextClues       map[string]any `json:"context_clues,omitempty"`
}

// ContextualAnalysis is the richer, secondary read on a user prompt.
type ContextualAnalysis struct {
	IntentConfidence          float64            `json:"intent_confidence"`
	SemanticCategories        []string           `json:"semantic_categories,omitempty"`
	CharacterEntities         []CharacterEntity  `json:"character_entities,omitempty"`
	SceneElements             []string           `json:"scene_elements,omitempty"`
	ArtisticStyleIndicators   []string           `json:"artistic_style_indicators,omitempty"`
	TemporalIndicators        []string           `json:"temporal_indicators,omitempty"`
	QualityIndicators         []string           `json:"quality_indicators,omitempty"`
	ComplexityMarkers         []string           `json:"complexity_markers,omitempty"`
	AmbiguityPoints           []string           `json:"ambiguity_points,omitempty"`
	SuggestedClarifications   []string           `json:"suggested_clarifications,omitempty"`
}

// FallbackClassification builds the fixed low-confidence classification
// (confidence 0.3, flagged classification_failed). The classifier in
// internal/intent does not call it.
func FallbackClassification(userPrompt, requestID string, now time.Time) IntentClassification {
	return IntentClassification{
		RequestID:       requestID,
		ContentType:     ContentImage,
		GenerationScope: ScopeCharacterProfile,
		StylePreference: "traditional_anime",
		UrgencyLevel:    UrgencyStandard,
		ComplexityLevel: ComplexitySimple,
		QualityLevel:    "standard",
		UserPrompt:      userPrompt,
		ConfidenceScore: 0.3,
		AmbiguityFlags:  []string{"classification_failed"},
		FallbackOptions: []string{"guided_workflow", "manual_selection"},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
