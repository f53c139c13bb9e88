package refindex

import (
	"fmt"
	"strings"

	"github.com/storyforge/orchestrator/internal/core"
)

const searchTextCap = 500

func cap500(s string) string {
	if len(s) <= searchTextCap {
		return s
	}
	return s[:searchTextCap]
}

// CharacterSearchText builds the curated search string for a character
// row: name, role, appearance highlights, and personality tags.
func CharacterSearchText(c *core.Character) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s. ", c.DisplayName)
	if c.Role != "" {
		fmt.Fprintf(&b, "Role: %s. ", c.Role)
	}
	if c.Appearance.Hair != "" || c.Appearance.Eyes != "" {
		fmt.Fprintf(&b, "Appearance: %s hair, %s eyes. ", c.Appearance.Hair, c.Appearance.Eyes)
	}
	if len(c.Appearance.KeyFeatures) > 0 {
		fmt.Fprintf(&b, "Features: %s. ", strings.Join(c.Appearance.KeyFeatures, ", "))
	}
	if len(c.PersonalityTags) > 0 {
		fmt.Fprintf(&b, "Personality: %s. ", strings.Join(c.PersonalityTags, ", "))
	}
	if c.Background != "" {
		fmt.Fprintf(&b, "Background: %s", c.Background)
	}
	return cap500(b.String())
}

// SceneSearchText builds the curated search string for a scene row.
func SceneSearchText(s *core.Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scene %d: %s. ", s.SceneNumber, s.Title)
	if s.Location != "" {
		fmt.Fprintf(&b, "Location: %s. ", s.Location)
	}
	if s.Mood != "" {
		fmt.Fprintf(&b, "Mood: %s. ", s.Mood)
	}
	if s.TimeOfDay != "" {
		fmt.Fprintf(&b, "Time: %s. ", s.TimeOfDay)
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "%s", s.Description)
	}
	return cap500(b.String())
}

// StyleSearchText builds the curated search string for a generation
// style row.
func StyleSearchText(s *core.GenerationStyle) string {
	return cap500(fmt.Sprintf("Style %s. Checkpoint: %s. Sampler: %s/%s.", s.Name, s.Checkpoint, s.Sampler, s.Scheduler))
}

// EpisodeSearchText builds the curated search string for an episode row.
func EpisodeSearchText(e *core.Episode) string {
	return cap500(fmt.Sprintf("Episode: %s", e.Title))
}

// LoraSearchText builds the curated search string for a LoRA, derived
// from a character's trigger/path fields since this domain has no
// standalone LoRA table.
func LoraSearchText(c *core.Character) string {
	if c.LoraTrigger == "" {
		return ""
	}
	return cap500(fmt.Sprintf("LoRA for %s. Trigger: %s.", c.DisplayName, c.LoraTrigger))
}
