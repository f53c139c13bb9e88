package workflow

import (
	"strings"
	"testing"
)

// TestLoraActivationRegression implements spec.md end-to-end scenario
// 4: the composed graph's LoRA loader node must carry the exact
// filename and identical strengths on both the model and CLIP inputs.
func TestLoraActivationRegression(t *testing.T) {
	g := BuildImageWorkflow(ImageParams{
		Prompt:     "kai_character, Kai standing, masterpiece",
		Checkpoint: "anime_v3.safetensors",
		Width:      512, Height: 768, Steps: 20, CFG: 7.0,
		Loras: []LoraRef{{Name: "kai.safetensors", Strength: 0.85}},
	})

	loraNode, ok := g["lora_0"]
	if !ok {
		t.Fatal("expected a lora_0 node in the built graph")
	}
	if loraNode.ClassType != ClassLoraLoader {
		t.Fatalf("expected ClassLoraLoader, got %v", loraNode.ClassType)
	}
	if loraNode.Inputs["lora_name"] != "kai.safetensors" {
		t.Fatalf("expected lora_name=kai.safetensors, got %v", loraNode.Inputs["lora_name"])
	}
	if loraNode.Inputs["strength_model"] != 0.85 || loraNode.Inputs["strength_clip"] != 0.85 {
		t.Fatalf("expected both strengths = 0.85, got model=%v clip=%v",
			loraNode.Inputs["strength_model"], loraNode.Inputs["strength_clip"])
	}

	positive, ok := g["positive"]
	if !ok {
		t.Fatal("expected a positive text-encode node")
	}
	text, _ := positive.Inputs["text"].(string)
	if !strings.Contains(text, "kai_character") {
		t.Fatalf("expected positive prompt to contain the LoRA trigger, got %q", text)
	}

	// The positive/negative encoders must draw CLIP from the LoRA
	// chain's output, not straight from the checkpoint, once a LoRA is
	// present.
	clipLink, ok := positive.Inputs["clip"].([]any)
	if !ok || clipLink[0] != "lora_0" {
		t.Fatalf("expected positive clip input to link to lora_0, got %v", positive.Inputs["clip"])
	}
}

func TestBuildImageWorkflowWithoutLoraLinksCheckpointDirectly(t *testing.T) {
	g := BuildImageWorkflow(ImageParams{Prompt: "p", Checkpoint: "c.safetensors", Width: 512, Height: 512, Steps: 20, CFG: 7})
	if _, ok := g["lora_0"]; ok {
		t.Fatal("expected no lora node when none requested")
	}
	positive := g["positive"]
	clipLink, ok := positive.Inputs["clip"].([]any)
	if !ok || clipLink[0] != "checkpoint" {
		t.Fatalf("expected clip to link directly to checkpoint, got %v", positive.Inputs["clip"])
	}
}

func TestBuildImageWorkflowRoundsResolutionDown(t *testing.T) {
	g := BuildImageWorkflow(ImageParams{Prompt: "p", Width: 700, Height: 1000, Steps: 20, CFG: 7})
	latent := g["latent"]
	if latent.Inputs["width"] != 640 {
		t.Fatalf("expected width rounded down to 640, got %v", latent.Inputs["width"])
	}
	if latent.Inputs["height"] != 960 {
		t.Fatalf("expected height rounded down to 960, got %v", latent.Inputs["height"])
	}
}

func TestBuildImageWorkflowUsesProvidedSeed(t *testing.T) {
	seed := int64(42)
	g := BuildImageWorkflow(ImageParams{Prompt: "p", Width: 512, Height: 512, Steps: 20, CFG: 7, Seed: &seed})
	if g["sampler"].Inputs["seed"] != seed {
		t.Fatalf("expected pinned seed to be used, got %v", g["sampler"].Inputs["seed"])
	}
}

func TestBuildVideoWorkflowBatchSizeFloor(t *testing.T) {
	// duration * fps = 2 * 4 = 8, well under the 16-frame floor; the
	// floor must never be silently reduced below 16 regardless of the
	// requested short duration.
	g := BuildVideoWorkflow(VideoParams{Prompt: "p", DurationSeconds: 2, FPS: 4, Width: 512, Height: 512, Steps: 20})
	latent := g["latent"]
	if latent.Inputs["batch_size"] != 16 {
		t.Fatalf("expected batch_size floored at 16, got %v", latent.Inputs["batch_size"])
	}
}

func TestBuildVideoWorkflowBatchSizeAboveFloor(t *testing.T) {
	g := BuildVideoWorkflow(VideoParams{Prompt: "p", DurationSeconds: 3, FPS: 24, Width: 512, Height: 512, Steps: 20})
	latent := g["latent"]
	if latent.Inputs["batch_size"] != 72 {
		t.Fatalf("expected batch_size = 72 (3*24), got %v", latent.Inputs["batch_size"])
	}
}

func TestBuildVideoWorkflowSamplerFallback(t *testing.T) {
	g := BuildVideoWorkflow(VideoParams{Prompt: "p", DurationSeconds: 5, FPS: 24, Width: 512, Height: 512, Steps: 20})
	if g["sampler"].Inputs["sampler_name"] != "euler" {
		t.Fatalf("expected sampler to fall back to euler, got %v", g["sampler"].Inputs["sampler_name"])
	}

	g2 := BuildVideoWorkflow(VideoParams{Prompt: "p", DurationSeconds: 5, FPS: 24, Width: 512, Height: 512, Steps: 20, StyleSampler: "dpmpp_2m"})
	if g2["sampler"].Inputs["sampler_name"] != "dpmpp_2m" {
		t.Fatalf("expected project style sampler to be used, got %v", g2["sampler"].Inputs["sampler_name"])
	}
}

func TestValidateRequiresMandatoryNodes(t *testing.T) {
	g := BuildImageWorkflow(ImageParams{Prompt: "p", Width: 512, Height: 512, Steps: 20, CFG: 7})
	if !Validate(g) {
		t.Fatal("expected a fully built image workflow to validate")
	}

	delete(g, "sampler")
	if Validate(g) {
		t.Fatal("expected validation to fail once the sampler node is removed")
	}
}

func TestBuildBatchWorkflowOneGraphPerPrompt(t *testing.T) {
	graphs := BuildBatchWorkflow([]string{"a", "b", "c"}, 512, 512, 20)
	if len(graphs) != 3 {
		t.Fatalf("expected 3 graphs, got %d", len(graphs))
	}
	for i, g := range graphs {
		if !Validate(g) {
			t.Fatalf("graph %d failed validation", i)
		}
	}
}

func TestRoundDownTo64(t *testing.T) {
	cases := map[int]int{63: 64, 64: 64, 65: 64, 127: 64, 128: 128, 700: 640, 2048: 2048}
	for in, want := range cases {
		if got := RoundDownTo64(in); got != want {
			t.Errorf("RoundDownTo64(%d) = %d, want %d", in, got, want)
		}
	}
}
