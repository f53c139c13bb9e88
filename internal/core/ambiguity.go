package core

// AmbiguityType enumerates the kinds of ambiguity detectable on a request.
type AmbiguityType string

const (
	AmbiguityContentTypeUnclear       AmbiguityType = "content_type_unclear"
	AmbiguityScopeAmbiguous           AmbiguityType = "scope_ambiguous"
	AmbiguityStyleConflicting         AmbiguityType = "style_conflicting"
	AmbiguityCharacterUndefined       AmbiguityType = "character_undefined"
	AmbiguityDurationMissing         AmbiguityType = "duration_missing"
	AmbiguityQualityVague             AmbiguityType = "quality_vague"
	AmbiguityUrgencyUnclear           AmbiguityType = "urgency_unclear"
	AmbiguityTechnicalIncomplete      AmbiguityType = "technical_incomplete"
	AmbiguityContradictoryRequirements AmbiguityType = "contradictory_requirements"
	AmbiguityInsufficientDetail       AmbiguityType = "insufficient_detail"
)

// Severity is how serious a detected ambiguity is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AmbiguityDetection is one detected issue on a classified request.
type AmbiguityDetection struct {
	Type           AmbiguityType  `json:"type"`
	Confidence     float64        `json:"confidence"`
	Description    string         `json:"description"`
	AffectedFields []string       `json:"affected_fields,omitempty"`
	Evidence       []string       `json:"evidence,omitempty"`
	Severity       Severity       `json:"severity"`
	Blocking       bool           `json:"blocking"`
	ContextClues   map[string]any `json:"context_clues,omitempty"`
}

// ResolutionStrategy is the approach used to resolve one AmbiguityDetection.
type ResolutionStrategy string

const (
	StrategyUserClarification  ResolutionStrategy = "user_clarification"
	StrategyIntelligentDefault ResolutionStrategy = "intelligent_default"
	StrategyContextInference   ResolutionStrategy = "context_inference"
	StrategyTemplateSuggestion ResolutionStrategy = "template_suggestion"
	StrategyProgressiveRefinement ResolutionStrategy = "progressive_refinement"
	StrategyFallbackWorkflow   ResolutionStrategy = "fallback_workflow"
	StrategyHybridApproach     ResolutionStrategy = "hybrid_approach"
)

// ClarificationQuestion is the resolved_value shape for user_clarification.
type ClarificationQuestion struct {
	Question          string   `json:"question"`
	Options            []string `json:"options,omitempty"`
	DefaultAnswer      any      `json:"default_answer,omitempty"`
	ValidationPattern  string   `json:"validation_pattern,omitempty"`
	TimeoutSeconds     int      `json:"timeout_seconds"`
	Priority           int      `json:"priority"`
}

// ProgressivePlan is the resolved_value shape for progressive_refinement.
type ProgressivePlan struct {
	InitialQuestion    string   `json:"initial_question"`
	FollowUpQuestions  []string `json:"follow_up_questions,omitempty"`
	ExpectedIterations int      `json:"expected_iterations"`
}

// ResolutionResult is the outcome of resolving one AmbiguityDetection.
type ResolutionResult struct {
	AmbiguityType           AmbiguityType      `json:"ambiguity_type"`
	Strategy                ResolutionStrategy `json:"strategy"`
	ResolvedValue           any                `json:"resolved_value"`
	Confidence              float64            `json:"confidence"`
	UserInteractionRequired bool               `json:"user_interaction_required"`
}

// AmbiguityReport is the orchestrator-level result of processing a request.
type AmbiguityReport struct {
	HasAmbiguities        bool                 `json:"has_ambiguities"`
	Ambiguities           []AmbiguityDetection `json:"ambiguities"`
	Resolutions           []ResolutionResult   `json:"resolutions"`
	RequiresUserInteraction bool               `json:"requires_user_interaction"`
	Confidence            float64              `json:"confidence"`
	BlockingIssues        []AmbiguityDetection `json:"blocking_issues"`
}
