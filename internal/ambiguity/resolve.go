package ambiguity

import (
	"github.com/expr-lang/expr"

	"github.com/storyforge/orchestrator/internal/core"
)

// intelligentDefaultThreshold is the minimum computed confidence for
// the intelligent_default strategy to return a value at all.
const intelligentDefaultThreshold = 0.6

// contextInferenceConfidence is the fixed confidence context_inference
// reports when a rule matches.
const contextInferenceConfidence = 0.75

// fallbackWorkflowConfidence is the fixed confidence a last-resort
// fallback_workflow default carries.
const fallbackWorkflowConfidence = 0.3

// inferenceRule is one "condition -> outcome" entry evaluated against
// an env built from the ambiguity's context clues.
type inferenceRule struct {
	Condition string
	Outcome   any
}

// contextInferenceRules is keyed by ambiguity type; the first rule
// whose condition evaluates truthy against the context wins.
var contextInferenceRules = map[core.AmbiguityType][]inferenceRule{
	core.AmbiguityDurationMissing: {
		{Condition: `generation_scope == "action_sequence"`, Outcome: 10},
		{Condition: `generation_scope == "dialogue_scene"`, Outcome: 15},
		{Condition: `generation_scope == "full_episode"`, Outcome: 120},
	},
	core.AmbiguityQualityVague: {
		{Condition: `urgency_level == "immediate"`, Outcome: "draft"},
		{Condition: `urgency_level == "batch_processing"`, Outcome: "standard"},
	},
}

// templates for template_suggestion, scored by keyword overlap with
// the ambiguity's evidence/context clues.
var templateCandidates = map[core.AmbiguityType]map[string][]string{
	core.AmbiguityStyleConflicting: {
		"traditional_anime":    {"anime", "manga", "2d", "classic"},
		"photorealistic_anime": {"realistic", "detailed", "rendered"},
		"cinematic":            {"cinematic", "movie", "dramatic"},
	},
}

// Resolve attempts each strategy in priority order for one ambiguity
// and returns the first non-nil result.
func Resolve(a core.AmbiguityDetection, classification core.IntentClassification) core.ResolutionResult {
	if r, ok := resolveUserClarification(a); ok {
		return r
	}
	if r, ok := resolveIntelligentDefault(a, classification); ok {
		return r
	}
	if r, ok := resolveContextInference(a, classification); ok {
		return r
	}
	if r, ok := resolveTemplateSuggestion(a); ok {
		return r
	}
	if r, ok := resolveProgressiveRefinement(a); ok {
		return r
	}
	return resolveFallbackWorkflow(a)
}

// resolveUserClarification only fires for blocking, high-severity
// ambiguities where a direct question to the user is the right tool.
func resolveUserClarification(a core.AmbiguityDetection) (core.ResolutionResult, bool) {
	if !a.Blocking || a.Severity != core.SeverityHigh {
		return core.ResolutionResult{}, false
	}

	question := core.ClarificationQuestion{
		Question:       clarificationQuestionText(a),
		TimeoutSeconds: 120,
		Priority:       1,
	}
	if a.Type == core.AmbiguityCharacterUndefined {
		question.Options = []string{"use a new character", "pick an existing character"}
	}

	return core.ResolutionResult{
		AmbiguityType:           a.Type,
		Strategy:                core.StrategyUserClarification,
		ResolvedValue:           question,
		Confidence:              0,
		UserInteractionRequired: true,
	}, true
}

func clarificationQuestionText(a core.AmbiguityDetection) string {
	switch a.Type {
	case core.AmbiguityCharacterUndefined:
		return "Which character is this request about?"
	case core.AmbiguityContentTypeUnclear:
		return "Are you asking for an image or a video?"
	default:
		return a.Description
	}
}

// resolveIntelligentDefault computes a context-aware default and only
// returns it when its confidence clears the strategy threshold.
func resolveIntelligentDefault(a core.AmbiguityDetection, c core.IntentClassification) (core.ResolutionResult, bool) {
	var value any
	var confidence float64

	switch a.Type {
	case core.AmbiguityDurationMissing:
		value, confidence = 10, 0.65 // most requests are short action beats
	case core.AmbiguityQualityVague:
		value, confidence = "standard", 0.7
	default:
		return core.ResolutionResult{}, false
	}

	if confidence < intelligentDefaultThreshold {
		return core.ResolutionResult{}, false
	}

	_ = c
	return core.ResolutionResult{
		AmbiguityType: a.Type, Strategy: core.StrategyIntelligentDefault,
		ResolvedValue: value, Confidence: confidence,
	}, true
}

// resolveContextInference evaluates the rule list for a's type against
// an expr env built from the classification, returning the first
// matching rule's outcome at a fixed confidence.
func resolveContextInference(a core.AmbiguityDetection, c core.IntentClassification) (core.ResolutionResult, bool) {
	rules, ok := contextInferenceRules[a.Type]
	if !ok {
		return core.ResolutionResult{}, false
	}

	env := map[string]any{
		"generation_scope": string(c.GenerationScope),
		"urgency_level":    string(c.UrgencyLevel),
		"content_type":     string(c.ContentType),
	}

	for _, rule := range rules {
		program, err := expr.Compile(rule.Condition, expr.Env(env))
		if err != nil {
			continue
		}
		result, err := expr.Run(program, env)
		if err != nil {
			continue
		}
		if truthy, ok := result.(bool); ok && truthy {
			return core.ResolutionResult{
				AmbiguityType: a.Type, Strategy: core.StrategyContextInference,
				ResolvedValue: rule.Outcome, Confidence: contextInferenceConfidence,
			}, true
		}
	}
	return core.ResolutionResult{}, false
}

// resolveTemplateSuggestion scores each candidate template by keyword
// overlap against the ambiguity's evidence and returns the best match.
func resolveTemplateSuggestion(a core.AmbiguityDetection) (core.ResolutionResult, bool) {
	candidates, ok := templateCandidates[a.Type]
	if !ok {
		return core.ResolutionResult{}, false
	}

	haystack := a.Description
	for _, e := range a.Evidence {
		haystack += " " + e
	}

	best, bestScore := "", 0
	for name, keywords := range candidates {
		score := 0
		for _, kw := range keywords {
			if containsFold(haystack, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if best == "" {
		return core.ResolutionResult{}, false
	}

	return core.ResolutionResult{
		AmbiguityType: a.Type, Strategy: core.StrategyTemplateSuggestion,
		ResolvedValue: best, Confidence: 0.6,
	}, true
}

// resolveProgressiveRefinement offers a multi-step clarification plan
// for ambiguities broad enough that one question won't settle them.
func resolveProgressiveRefinement(a core.AmbiguityDetection) (core.ResolutionResult, bool) {
	if a.Type != core.AmbiguityInsufficientDetail && a.Type != core.AmbiguityContradictoryRequirements {
		return core.ResolutionResult{}, false
	}

	plan := core.ProgressivePlan{
		InitialQuestion:    "What's the main subject of this request?",
		FollowUpQuestions:  []string{"What style should it use?", "How should it look when finished?"},
		ExpectedIterations: 2,
	}
	return core.ResolutionResult{
		AmbiguityType: a.Type, Strategy: core.StrategyProgressiveRefinement,
		ResolvedValue: plan, Confidence: 0.5,
	}, true
}

// resolveFallbackWorkflow is the last resort: a typed default value at
// fixed low confidence, so process() always terminates with a result.
func resolveFallbackWorkflow(a core.AmbiguityDetection) core.ResolutionResult {
	var value any
	switch a.Type {
	case core.AmbiguityDurationMissing:
		value = 5
	case core.AmbiguityQualityVague:
		value = "standard"
	case core.AmbiguityStyleConflicting:
		value = "traditional_anime"
	default:
		value = nil
	}
	return core.ResolutionResult{
		AmbiguityType: a.Type, Strategy: core.StrategyFallbackWorkflow,
		ResolvedValue: value, Confidence: fallbackWorkflowConfidence,
	}
}

func containsFold(haystack, needle string) bool {
	hl, nl := []rune(haystack), []rune(needle)
	lower := func(rs []rune) []rune {
		out := make([]rune, len(rs))
		for i, r := range rs {
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			out[i] = r
		}
		return out
	}
	hl, nl = lower(hl), lower(nl)
	for i := 0; i+len(nl) <= len(hl); i++ {
		match := true
		for j := range nl {
			if hl[i+j] != nl[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return len(nl) == 0
}
