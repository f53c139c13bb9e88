// Package workflow builds node-graph documents suitable for submission
// to the backend connector: checkpoint loader, positive/negative text
// encoders, sampler, decoder, and save node, wired by node ID.
package workflow

import "fmt"

// NodeClass names a ComfyUI-shaped node's backend class, used to check
// a built graph contains every mandatory node class before submission.
type NodeClass string

const (
	ClassCheckpointLoader NodeClass = "CheckpointLoaderSimple"
	ClassCLIPTextEncode   NodeClass = "CLIPTextEncode"
	ClassKSampler         NodeClass = "KSampler"
	ClassEmptyLatentImage NodeClass = "EmptyLatentImage"
	ClassVAEDecode        NodeClass = "VAEDecode"
	ClassSaveImage        NodeClass = "SaveImage"
	ClassLoraLoader       NodeClass = "LoraLoader"
	ClassVideoLinearCFG   NodeClass = "VideoLinearCFGGuidance"
	ClassSaveVideo        NodeClass = "SaveAnimatedWEBP"
)

// Node is one node in the graph: a backend class plus its input map,
// where inputs may be literal values or ["<node-id>", <output-index>]
// links to another node's output.
type Node struct {
	ClassType NodeClass      `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// Graph is the node-graph document submitted to the backend, keyed by
// node ID exactly as the backend's /prompt endpoint expects.
type Graph map[string]Node

// link builds a ["<node-id>", 0]-shaped input reference.
func link(nodeID string, outputIndex int) []any {
	return []any{nodeID, outputIndex}
}

// RoundDownTo64 rounds a resolution dimension down to the nearest
// multiple of 64, the backend's latent-space alignment requirement;
// values below 64 become 64.
func RoundDownTo64(v int) int {
	if v < 64 {
		return 64
	}
	return (v / 64) * 64
}

// Validate ensures the mandatory node classes for an image or video
// pipeline are present: a model loader, both text encoders, a sampler,
// and a decoder/save pair.
func Validate(g Graph) bool {
	required := map[NodeClass]bool{
		ClassCheckpointLoader: false,
		ClassCLIPTextEncode:   false,
		ClassKSampler:         false,
		ClassVAEDecode:        false,
	}
	saveSeen := false
	encodeCount := 0

	for _, n := range g {
		if _, ok := required[n.ClassType]; ok {
			required[n.ClassType] = true
		}
		if n.ClassType == ClassCLIPTextEncode {
			encodeCount++
		}
		if n.ClassType == ClassSaveImage || n.ClassType == ClassSaveVideo {
			saveSeen = true
		}
	}

	for _, present := range required {
		if !present {
			return false
		}
	}
	return encodeCount >= 2 && saveSeen
}

// AsMap exposes the graph as a plain map[string]any for the backend
// client's submit payload, since Graph's node values already satisfy
// json.Marshal directly but callers outside this package work with
// map[string]any.
func (g Graph) AsMap() map[string]any {
	out := make(map[string]any, len(g))
	for id, n := range g {
		out[id] = n
	}
	return out
}

func nodeID(prefix string, n int) string {
	return fmt.Sprintf("%s_%d", prefix, n)
}
