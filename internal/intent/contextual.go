package intent

import (
	"context"

	"github.com/storyforge/orchestrator/internal/core"
)

type contextualLLMResponse struct {
	IntentConfidence        *float64               `json:"intent_confidence"`
	SemanticCategories      []string               `json:"semantic_categories"`
	CharacterEntities       []core.CharacterEntity `json:"character_entities"`
	SceneElements           []string               `json:"scene_elements"`
	ArtisticStyleIndicators []string               `json:"artistic_style_indicators"`
	TemporalIndicators      []string               `json:"temporal_indicators"`
	QualityIndicators       []string               `json:"quality_indicators"`
	ComplexityMarkers       []string               `json:"complexity_markers"`
	AmbiguityPoints         []string               `json:"ambiguity_points"`
	SuggestedClarifications []string               `json:"suggested_clarifications"`
}

// PerformContextualAnalysis asks the collaborator for the richer,
// secondary read on a prompt used by the ambiguity resolver and
// resource resolver. On any failure it returns a zero-value analysis
// with IntentConfidence 0, signalling "nothing learned" rather than
// propagating an error.
func (c *Classifier) PerformContextualAnalysis(ctx context.Context, userPrompt string) core.ContextualAnalysis {
	if c.llm == nil {
		return core.ContextualAnalysis{}
	}

	var resp contextualLLMResponse
	ok, err := c.llm.QueryJSON(ctx, contextualAnalysisPrompt(userPrompt), nil, &resp)
	if err != nil || !ok {
		return core.ContextualAnalysis{}
	}

	analysis := core.ContextualAnalysis{
		SemanticCategories:      resp.SemanticCategories,
		CharacterEntities:       resp.CharacterEntities,
		SceneElements:           resp.SceneElements,
		ArtisticStyleIndicators: resp.ArtisticStyleIndicators,
		TemporalIndicators:      resp.TemporalIndicators,
		QualityIndicators:       resp.QualityIndicators,
		ComplexityMarkers:       resp.ComplexityMarkers,
		AmbiguityPoints:         resp.AmbiguityPoints,
		SuggestedClarifications: resp.SuggestedClarifications,
	}
	if resp.IntentConfidence != nil {
		analysis.IntentConfidence = *resp.IntentConfidence
	}
	return analysis
}

func contextualAnalysisPrompt(userPrompt string) string {
	return "Perform a contextual analysis of this anime production request and respond only " +
		"with JSON containing intent_confidence, semantic_categories, character_entities " +
		"(each with name, physical_description, personality_traits, role, relationships, " +
		"confidence, context_clues), scene_elements, artistic_style_indicators, " +
		"temporal_indicators, quality_indicators, complexity_markers, ambiguity_points, " +
		"suggested_clarifications.\n\nRequest: " + userPrompt
}
