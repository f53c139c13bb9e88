package core

import "time"

// GenerationParams are the parameters recorded alongside a produced
// artifact, reused by both the workflow composer and the quality gate.
type GenerationParams struct {
	Checkpoint        string   `json:"checkpoint,omitempty"`
	Loras             []string `json:"loras,omitempty"`
	PositivePrompt    string   `json:"positive_prompt,omitempty"`
	NegativePrompt    string   `json:"negative_prompt,omitempty"`
	Sampler           string   `json:"sampler,omitempty"`
	Scheduler         string   `json:"scheduler,omitempty"`
	Steps             int      `json:"steps,omitempty"`
	CFGScale          float64  `json:"cfg_scale,omitempty"`
	BatchSize         int      `json:"batch_size,omitempty"`
	Seed              int64    `json:"seed,omitempty"`
	Width             int      `json:"width,omitempty"`
	Height            int      `json:"height,omitempty"`
}

// Gate is one pass/fail check within a ContractResult.
type Gate struct {
	Passed  bool    `json:"passed"`
	Value   float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Details string  `json:"details,omitempty"`
}

// ContractResult is the outcome of validating one produced artifact
// against the quality contract.
type ContractResult struct {
	Passed          bool            `json:"passed"`
	QualityScore    float64         `json:"quality_score"`
	StructuralGates map[string]Gate `json:"structural_gates"`
	MotionGates     map[string]Gate `json:"motion_gates,omitempty"`
	QualityGates    map[string]Gate `json:"quality_gates"`
	FrameSamples    []string        `json:"frame_samples,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
	GenerationParams GenerationParams `json:"generation_params"`
	Error           string          `json:"error,omitempty"`
}

// QualityFeedback is one record per reviewed generation, accumulated
// into the per-project learned-elements corpus.
type QualityFeedback struct {
	GenerationID       string           `json:"generation_id"`
	BackendPromptID    string           `json:"backend_prompt_id"`
	ProjectID          string           `json:"project_id,omitempty"`
	GenerationParams   GenerationParams `json:"generation_params"`
	ContractPassed     bool             `json:"contract_passed"`
	QualityScore       float64          `json:"quality_score"`
	StructuralGates    map[string]Gate  `json:"structural_gates,omitempty"`
	MotionGates        map[string]Gate  `json:"motion_gates,omitempty"`
	QualityGates       map[string]Gate  `json:"quality_gates,omitempty"`
	FrameSamplePaths   []string         `json:"frame_sample_paths,omitempty"`
	Recommendations    []string         `json:"recommendations,omitempty"`
	SuccessfulElements []string         `json:"successful_elements,omitempty"`
	FailedElements     []string         `json:"failed_elements,omitempty"`
	AnalysisNotes      string           `json:"analysis_notes,omitempty"`
	OutputPath         string           `json:"output_path,omitempty"`
	FileSizeBytes      int64            `json:"file_size_bytes,omitempty"`
	DurationSeconds    float64          `json:"duration_seconds,omitempty"`
	FrameCount         int              `json:"frame_count,omitempty"`
	HumanScore         *float64         `json:"human_score,omitempty"`
	HumanNotes         string           `json:"human_notes,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// ProjectStats aggregates quality feedback for a project.
type ProjectStats struct {
	TotalGenerations int     `json:"total_generations"`
	PassRate         float64 `json:"pass_rate"`
	AverageQuality   float64 `json:"average_quality"`
}
