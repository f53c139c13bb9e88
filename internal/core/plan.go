package core

// LoraSelection is one LoRA chosen for a generation plan: its filename,
// the strength to apply it at, and the trigger token that activates it.
type LoraSelection struct {
	Name     string `json:"name"`
	Strength float64 `json:"strength"`
	Trigger  string `json:"trigger,omitempty"`
}

// PlanResources is the concrete resource selection a GenerationPlan
// resolves a classified request to.
type PlanResources struct {
	WorkflowFile   string          `json:"workflow_file"`
	Checkpoint     string          `json:"checkpoint"`
	Loras          []LoraSelection `json:"loras,omitempty"`
	PositivePrompt string          `json:"positive_prompt"`
	NegativePrompt string          `json:"negative_prompt"`
	Width          int             `json:"width"`
	Height         int             `json:"height"`
	Steps          int             `json:"steps"`
	CFGScale       float64         `json:"cfg_scale"`
	Reasoning      []string        `json:"reasoning,omitempty"`
}

// GenerationPlan is the Resource Resolver's output: everything needed
// to compose and submit a workflow for one user request.
type GenerationPlan struct {
	Analysis   IntentClassification `json:"analysis"`
	References []RefPointer         `json:"references,omitempty"`
	FreshData  map[string]any       `json:"fresh_data,omitempty"`
	Resources  PlanResources        `json:"resources"`
	Warnings   []string             `json:"warnings,omitempty"`
}

// RefPointer is one (table, id) reference returned by the reference
// index, never consumed as content directly.
type RefPointer struct {
	SourceTable string  `json:"source_table"`
	SourceID    string  `json:"source_id"`
	Type        string  `json:"type"`
	DisplayName string  `json:"display_name,omitempty"`
	Score       float64 `json:"score"`
}
