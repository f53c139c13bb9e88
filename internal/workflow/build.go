package workflow

import (
	"crypto/rand"
	"encoding/binary"
)

const videoBatchSizeFloor = 16

// randomSeed returns a random non-negative 32-bit seed, the composer's
// default when the caller doesn't pin one.
func randomSeed() int64 {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return int64(binary.BigEndian.Uint32(buf[:]) & 0x7fffffff)
}

// ImageParams are the resolved inputs to build_image_workflow.
type ImageParams struct {
	Prompt         string
	NegativePrompt string
	Width, Height  int
	Steps          int
	CFG            float64
	Seed           *int64
	Checkpoint     string
	Loras          []LoraRef
}

// LoraRef is one LoRA adapter applied on top of the checkpoint.
type LoraRef struct {
	Name     string
	Strength float64
}

// BuildImageWorkflow assembles a single-image generation graph:
// checkpoint (+ LoRA chain) -> positive/negative encode -> empty
// latent -> sampler -> decode -> save.
func BuildImageWorkflow(p ImageParams) Graph {
	width := RoundDownTo64(p.Width)
	height := RoundDownTo64(p.Height)
	seed := randomSeed()
	if p.Seed != nil {
		seed = *p.Seed
	}

	g := Graph{}
	modelSource := "checkpoint"
	g["checkpoint"] = Node{ClassType: ClassCheckpointLoader, Inputs: map[string]any{"ckpt_name": p.Checkpoint}}

	for i, lora := range p.Loras {
		id := nodeID("lora", i)
		g[id] = Node{
			ClassType: ClassLoraLoader,
			Inputs: map[string]any{
				"model": link(modelSource, 0), "clip": link(modelSource, 1),
				"lora_name": lora.Name, "strength_model": lora.Strength, "strength_clip": lora.Strength,
			},
		}
		modelSource = id
	}

	g["positive"] = Node{ClassType: ClassCLIPTextEncode, Inputs: map[string]any{"text": p.Prompt, "clip": link(modelSource, 1)}}
	g["negative"] = Node{ClassType: ClassCLIPTextEncode, Inputs: map[string]any{"text": p.NegativePrompt, "clip": link(modelSource, 1)}}
	g["latent"] = Node{ClassType: ClassEmptyLatentImage, Inputs: map[string]any{"width": width, "height": height, "batch_size": 1}}
	g["sampler"] = Node{
		ClassType: ClassKSampler,
		Inputs: map[string]any{
			"model": link(modelSource, 0), "positive": link("positive", 0), "negative": link("negative", 0),
			"latent_image": link("latent", 0), "seed": seed, "steps": p.Steps, "cfg": p.CFG,
			"sampler_name": "euler", "scheduler": "normal", "denoise": 1.0,
		},
	}
	g["decode"] = Node{ClassType: ClassVAEDecode, Inputs: map[string]any{"samples": link("sampler", 0), "vae": link("checkpoint", 2)}}
	g["save"] = Node{ClassType: ClassSaveImage, Inputs: map[string]any{"images": link("decode", 0)}}
	return g
}

// VideoParams are the resolved inputs to build_video_workflow.
type VideoParams struct {
	Prompt          string
	DurationSeconds int
	FPS             int
	Width, Height   int
	Steps           int
	Checkpoint      string
	StyleSampler    string // project style's sampler, falls back to euler/normal
}

// BuildVideoWorkflow assembles a video generation graph with a
// batch_size derived from duration and FPS, floored at 16 frames to
// preserve temporal coherence in the motion module; this floor is
// never auto-reduced regardless of requested duration.
func BuildVideoWorkflow(p VideoParams) Graph {
	width := RoundDownTo64(p.Width)
	height := RoundDownTo64(p.Height)
	batchSize := p.DurationSeconds * p.FPS
	if batchSize < videoBatchSizeFloor {
		batchSize = videoBatchSizeFloor
	}

	sampler := p.StyleSampler
	if sampler == "" {
		sampler = "euler"
	}

	g := Graph{}
	g["checkpoint"] = Node{ClassType: ClassCheckpointLoader, Inputs: map[string]any{"ckpt_name": p.Checkpoint}}
	g["positive"] = Node{ClassType: ClassCLIPTextEncode, Inputs: map[string]any{"text": p.Prompt, "clip": link("checkpoint", 1)}}
	g["negative"] = Node{ClassType: ClassCLIPTextEncode, Inputs: map[string]any{"text": "", "clip": link("checkpoint", 1)}}
	g["latent"] = Node{ClassType: ClassEmptyLatentImage, Inputs: map[string]any{"width": width, "height": height, "batch_size": batchSize}}
	g["guidance"] = Node{ClassType: ClassVideoLinearCFG, Inputs: map[string]any{"model": link("checkpoint", 0), "min_cfg": 1.0}}
	g["sampler"] = Node{
		ClassType: ClassKSampler,
		Inputs: map[string]any{
			"model": link("guidance", 0), "positive": link("positive", 0), "negative": link("negative", 0),
			"latent_image": link("latent", 0), "seed": randomSeed(), "steps": p.Steps, "cfg": 7.0,
			"sampler_name": sampler, "scheduler": "normal", "denoise": 1.0,
		},
	}
	g["decode"] = Node{ClassType: ClassVAEDecode, Inputs: map[string]any{"samples": link("sampler", 0), "vae": link("checkpoint", 2)}}
	g["save"] = Node{ClassType: ClassSaveVideo, Inputs: map[string]any{"images": link("decode", 0), "fps": p.FPS}}
	return g
}

// BuildBatchWorkflow assembles one graph per prompt in prompts, sharing
// width/height/steps, for a batch_generation scope request.
func BuildBatchWorkflow(prompts []string, width, height, steps int) []Graph {
	out := make([]Graph, 0, len(prompts))
	for _, prompt := range prompts {
		out = append(out, BuildImageWorkflow(ImageParams{
			Prompt: prompt, Width: width, Height: height, Steps: steps, CFG: 7.0,
		}))
	}
	return out
}
