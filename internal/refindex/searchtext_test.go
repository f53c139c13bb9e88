package refindex

import (
	"strings"
	"testing"

	"github.com/storyforge/orchestrator/internal/core"
)

func TestCharacterSearchTextIncludesKeyFields(t *testing.T) {
	c := &core.Character{
		DisplayName: "Kai", Role: "protagonist",
		Appearance:      core.Appearance{Hair: "silver", Eyes: "blue", KeyFeatures: []string{"scar"}},
		PersonalityTags: []string{"brave", "stoic"},
		Background:      "raised in the mountains",
	}
	text := CharacterSearchText(c)
	for _, want := range []string{"Kai", "protagonist", "silver hair", "blue eyes", "scar", "brave", "stoic", "raised in the mountains"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected search text to contain %q, got %q", want, text)
		}
	}
}

func TestCharacterSearchTextCapsAt500Bytes(t *testing.T) {
	c := &core.Character{DisplayName: strings.Repeat("x", 1000)}
	text := CharacterSearchText(c)
	if len(text) > 500 {
		t.Fatalf("expected search text capped at 500 bytes, got %d", len(text))
	}
}

func TestSceneSearchTextIncludesLocationMoodAndTime(t *testing.T) {
	s := &core.Scene{SceneNumber: 3, Title: "The Duel", Location: "rooftop", Mood: "tense", TimeOfDay: "dusk", Description: "two rivals face off"}
	text := SceneSearchText(s)
	for _, want := range []string{"Scene 3", "The Duel", "rooftop", "tense", "dusk", "two rivals face off"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected search text to contain %q, got %q", want, text)
		}
	}
}

func TestStyleSearchTextIncludesCheckpointAndSampler(t *testing.T) {
	s := &core.GenerationStyle{Name: "traditional_anime", Checkpoint: "anime.safetensors", Sampler: "euler", Scheduler: "karras"}
	text := StyleSearchText(s)
	for _, want := range []string{"traditional_anime", "anime.safetensors", "euler", "karras"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected search text to contain %q, got %q", want, text)
		}
	}
}

func TestEpisodeSearchTextIncludesTitle(t *testing.T) {
	e := &core.Episode{Title: "Episode One"}
	if text := EpisodeSearchText(e); !strings.Contains(text, "Episode One") {
		t.Fatalf("expected search text to contain the title, got %q", text)
	}
}

func TestLoraSearchTextEmptyWithoutTrigger(t *testing.T) {
	c := &core.Character{DisplayName: "Kai"}
	if text := LoraSearchText(c); text != "" {
		t.Fatalf("expected empty search text without a lora trigger, got %q", text)
	}
}

func TestLoraSearchTextIncludesTrigger(t *testing.T) {
	c := &core.Character{DisplayName: "Kai", LoraTrigger: "kai_character"}
	if text := LoraSearchText(c); !strings.Contains(text, "kai_character") {
		t.Fatalf("expected search text to contain the trigger, got %q", text)
	}
}
