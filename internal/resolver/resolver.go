// Package resolver turns a classified request into a concrete
// GenerationPlan: the Resource Resolver, and in practice the
// source-of-truth contract for prompt assembly.
package resolver

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/storyforge/orchestrator/internal/core"
	"github.com/storyforge/orchestrator/internal/intent"
	"github.com/storyforge/orchestrator/internal/refindex"
	"github.com/storyforge/orchestrator/internal/repository"
)

const loraStandardStrength = 0.85

var staticQualityTokens = []string{"masterpiece", "best quality", "high resolution", "detailed"}

var baseNegativePrompt = strings.Join([]string{
	"lowres", "bad anatomy", "bad hands", "text", "error", "missing fingers",
	"extra digit", "fewer digits", "cropped", "worst quality", "low quality",
	"jpeg artifacts", "signature", "watermark",
}, ", ")

var styleConditionalTokens = map[string][]string{
	"cyberpunk":            {"cyberpunk aesthetic", "neon lights"},
	"photorealistic_anime": {"photorealistic", "8k uhd"},
}

var sceneConditionalTokens = map[string][]string{
	"action":   {"dynamic pose", "motion blur", "intense action"},
	"romantic": {"warm lighting", "soft focus", "emotional"},
}

var sceneConditionalNegatives = map[string][]string{
	"action":   {"static pose", "standing still", "calm expression"},
	"romantic": {"cold", "harsh", "violent", "aggressive"},
}

// moodAtmosphereTokens condenses the atmosphere templates' visual/color
// cues for a scene's mood into prompt tokens.
var moodAtmosphereTokens = map[string][]string{
	"dramatic":    {"stark contrasts", "sharp shadows", "dramatic lighting"},
	"romantic":    {"soft lighting", "warm colors", "golden glow"},
	"mysterious":  {"fog effects", "obscured details", "shadowy blues"},
	"peaceful":    {"natural harmony", "soft textures", "sky blues"},
	"energetic":   {"dynamic movement", "vibrant colors", "bright sunshine"},
	"melancholic": {"muted colors", "overcast skies", "faded colors"},
	"suspenseful": {"sharp contrasts", "building tension", "ominous blacks"},
	"comedic":     {"bright colors", "playful details", "cheerful yellows"},
}

// weatherAtmosphereTokens condenses weather-pattern descriptors into
// prompt tokens.
var weatherAtmosphereTokens = map[string][]string{
	"clear":    {"clear skies", "crisp air", "bright natural lighting"},
	"rain":     {"light rain", "wet streets", "rain reflections"},
	"storm":    {"stormy skies", "distant thunder", "windswept"},
	"snow":     {"falling snow", "cold breath", "muffled silence"},
	"fog":      {"foggy mist", "reduced visibility", "soft diffused light"},
	"overcast": {"overcast skies", "flat diffused light", "cool tones"},
}

// workflowPriority maps a detected scene type to candidate workflow
// filenames, tried in order until one exists on disk.
var workflowPriority = map[string][]string{
	"action":    {"workflows/action_sequence.json", "workflows/generic_video.json"},
	"romantic":  {"workflows/dialogue_scene.json", "workflows/generic_video.json"},
	"character": {"workflows/character_portrait.json"},
	"":          {"workflows/character_portrait.json"},
}

var capitalizedWordPattern = regexp.MustCompile(`\b([A-Z][a-z]+)\b`)

// Resolver assembles GenerationPlans from catalog rows, index hits,
// and disk-backed resource directories.
type Resolver struct {
	catalog       repository.CatalogRepository
	index         *refindex.Client
	embedder      refindex.Embedder
	classifier    *intent.Classifier
	checkpointDir string
	workflowDir   string
	loraDir       string
}

func New(catalog repository.CatalogRepository, index *refindex.Client, embedder refindex.Embedder, classifier *intent.Classifier, checkpointDir, workflowDir, loraDir string) *Resolver {
	return &Resolver{
		catalog: catalog, index: index, embedder: embedder, classifier: classifier,
		checkpointDir: checkpointDir, workflowDir: workflowDir, loraDir: loraDir,
	}
}

// Plan runs the full resolution pipeline for one user prompt against
// one project and its pinned style.
func (r *Resolver) Plan(ctx context.Context, projectID, userPrompt string, classification core.IntentClassification, style *core.GenerationStyle) (core.GenerationPlan, error) {
	plan := core.GenerationPlan{Analysis: classification}

	sceneType := detectSceneType(userPrompt)
	candidateNames := extractCapitalizedWords(userPrompt)
	if len(classification.CharacterNames) > 0 {
		candidateNames = append(candidateNames, classification.CharacterNames...)
	}
	candidateNames = dedupe(candidateNames)

	var characters []*core.Character
	for _, name := range candidateNames {
		matches, err := r.catalog.SearchCharactersByName(ctx, projectID, name)
		if err != nil || len(matches) == 0 {
			continue
		}
		characters = append(characters, matches[0]) // exact-match-boosted top hit
	}

	if r.index != nil && r.embedder != nil {
		hits, err := r.index.Search(ctx, r.embedder.Embed(userPrompt), 5, "scene")
		if err == nil {
			for _, hit := range hits {
				plan.References = append(plan.References, core.RefPointer{
					SourceTable: hit.SourceTable, SourceID: hit.SourceID,
					Type: hit.Type, DisplayName: hit.DisplayName, Score: hit.Score,
				})
			}
		}
	}

	var scenes []*core.Scene
	for _, ref := range plan.References {
		if ref.SourceTable != "scenes" {
			continue
		}
		scene, err := r.catalog.GetScene(ctx, ref.SourceID)
		if err == nil {
			scenes = append(scenes, scene)
		}
	}

	var reasoning []string
	checkpoint := resolveCheckpoint(r.checkpointDir, style)
	if checkpoint == "" {
		reasoning = append(reasoning, "no checkpoint candidate exists on disk for the project style")
	} else {
		reasoning = append(reasoning, "selected checkpoint "+checkpoint)
	}

	loras := resolveLoras(r.loraDir, characters, style)
	if len(loras) == 0 {
		plan.Warnings = append(plan.Warnings, "no LoRA selected")
	}

	workflowFile := resolveWorkflowFile(r.workflowDir, sceneType)
	if workflowFile == "" {
		plan.Warnings = append(plan.Warnings, "no workflow file found")
	}

	if len(characters) == 0 {
		plan.Warnings = append(plan.Warnings, "no characters found")
	}

	styleName := ""
	if style != nil {
		styleName = style.Name
	}

	var learned []string
	if successful, _, err := r.catalog.GetLearnedElements(ctx, projectID); err == nil {
		learned = successful
		for _, el := range successful {
			reasoning = append(reasoning, "reused learned-successful element: "+el)
		}
	}

	positive, negative := buildPrompts(characters, scenes, sceneType, styleName, loras, learned, &reasoning)

	width, height, steps, cfg := 1024, 1024, 24, 7.0
	if style != nil {
		if style.Width > 0 {
			width = style.Width
		}
		if style.Height > 0 {
			height = style.Height
		}
		if style.Steps > 0 {
			steps = style.Steps
		}
		if style.CFGScale > 0 {
			cfg = style.CFGScale
		}
	}

	plan.Resources = core.PlanResources{
		WorkflowFile: workflowFile, Checkpoint: checkpoint, Loras: loras,
		PositivePrompt: positive, NegativePrompt: negative,
		Width: width, Height: height, Steps: steps, CFGScale: cfg,
		Reasoning: reasoning,
	}
	return plan, nil
}

func detectSceneType(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "fight") || strings.Contains(lower, "battle") || strings.Contains(lower, "chase"):
		return "action"
	case strings.Contains(lower, "romance") || strings.Contains(lower, "romantic") || strings.Contains(lower, "love"):
		return "romantic"
	default:
		return ""
	}
}

func extractCapitalizedWords(text string) []string {
	var out []string
	for _, m := range capitalizedWordPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func resolveCheckpoint(checkpointDir string, style *core.GenerationStyle) string {
	if style == nil || style.Checkpoint == "" || checkpointDir == "" {
		return ""
	}
	path := filepath.Join(checkpointDir, style.Checkpoint)
	if _, err := os.Stat(path); err == nil {
		return style.Checkpoint
	}
	return ""
}

func resolveWorkflowFile(workflowDir, sceneType string) string {
	for _, candidate := range workflowPriority[sceneType] {
		if workflowDir == "" {
			return candidate
		}
		if _, err := os.Stat(filepath.Join(workflowDir, filepath.Base(candidate))); err == nil {
			return candidate
		}
	}
	return ""
}

func resolveLoras(loraDir string, characters []*core.Character, style *core.GenerationStyle) []core.LoraSelection {
	seen := map[string]bool{}
	var out []core.LoraSelection
	for _, c := range characters {
		if c.LoraPath == "" || seen[c.LoraPath] {
			continue
		}
		if loraDir != "" {
			if _, err := os.Stat(filepath.Join(loraDir, c.LoraPath)); err != nil {
				continue
			}
		}
		seen[c.LoraPath] = true
		out = append(out, core.LoraSelection{Name: c.LoraPath, Strength: loraStandardStrength, Trigger: c.LoraTrigger})
	}
	_ = style // style LoRAs are not modeled as a distinct catalog entity in this domain
	return out
}

func buildPrompts(characters []*core.Character, scenes []*core.Scene, sceneType, styleName string, loras []core.LoraSelection, learned []string, reasoning *[]string) (positive, negative string) {
	var parts []string
	parts = append(parts, staticQualityTokens...)

	for _, l := range loras {
		if l.Trigger != "" {
			parts = append(parts, l.Trigger)
		}
	}

	for _, c := range characters {
		parts = append(parts, characterPhrase(c))
		*reasoning = append(*reasoning, "added character phrase for "+c.DisplayName)
	}

	parts = append(parts, learned...)

	for _, s := range scenes {
		parts = append(parts, scenePhrase(s))
		*reasoning = append(*reasoning, "added scene phrase for "+s.Title)
	}

	if tokens, ok := styleConditionalTokens[styleName]; ok {
		parts = append(parts, tokens...)
		*reasoning = append(*reasoning, "applied "+styleName+" style-conditional tokens")
	}
	if tokens, ok := sceneConditionalTokens[sceneType]; ok {
		parts = append(parts, tokens...)
		*reasoning = append(*reasoning, "applied "+sceneType+" scene-conditional tokens")
	}

	for _, s := range scenes {
		parts = append(parts, locationAndAtmosphereTokens(s, reasoning)...)
	}

	negativeParts := []string{baseNegativePrompt}
	if negs, ok := sceneConditionalNegatives[sceneType]; ok {
		negativeParts = append(negativeParts, strings.Join(negs, ", "))
	}

	return strings.Join(parts, ", "), strings.Join(negativeParts, ", ")
}

// locationAndAtmosphereTokens implements spec §4.7 step 5.g: location
// tokens when a scene names one, plus the mood/weather-derived
// atmosphere fragments folded in from the scene generation stage.
func locationAndAtmosphereTokens(s *core.Scene, reasoning *[]string) []string {
	var tokens []string
	if s.Location != "" {
		tokens = append(tokens, "set in "+s.Location)
		*reasoning = append(*reasoning, "added location token for "+s.Location)
	}
	if mood, ok := moodAtmosphereTokens[strings.ToLower(s.Mood)]; ok {
		tokens = append(tokens, mood...)
		*reasoning = append(*reasoning, "applied "+s.Mood+" mood atmosphere tokens")
	}
	if weather, ok := weatherAtmosphereTokens[strings.ToLower(s.Weather)]; ok {
		tokens = append(tokens, weather...)
		*reasoning = append(*reasoning, "applied "+s.Weather+" weather atmosphere tokens")
	}
	return tokens
}

func characterPhrase(c *core.Character) string {
	var fields []string
	if c.Appearance.Hair != "" {
		fields = append(fields, c.Appearance.Hair+" hair")
	}
	if c.Appearance.Eyes != "" {
		fields = append(fields, c.Appearance.Eyes+" eyes")
	}
	if c.Appearance.Clothing != "" {
		fields = append(fields, c.Appearance.Clothing)
	}
	if len(c.Appearance.KeyFeatures) > 0 {
		fields = append(fields, c.Appearance.KeyFeatures[0])
	}
	if len(fields) > 4 {
		fields = fields[:4]
	}
	phrase := c.DisplayName + ", " + strings.Join(fields, ", ")
	if len(phrase) > 150 {
		phrase = phrase[:150]
	}
	return phrase
}

func scenePhrase(s *core.Scene) string {
	phrase := s.Description
	if phrase == "" {
		phrase = s.Narrative
	}
	if phrase == "" {
		phrase = s.Location
	}
	if len(phrase) > 150 {
		phrase = phrase[:150]
	}
	return phrase
}
