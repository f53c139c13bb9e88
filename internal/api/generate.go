package api

import (
	"fmt"
	"net/http"

	"github.com/storyforge/orchestrator/internal/ambiguity"
	"github.com/storyforge/orchestrator/internal/apperr"
	"github.com/storyforge/orchestrator/internal/core"
	"github.com/storyforge/orchestrator/internal/intent"
)

// generateRequest is the POST /generate body.
type generateRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	ProjectID      string `json:"project_id"`
	CharacterID    string `json:"character_id"`
	StylePreset    string `json:"style_preset"`
}

type generateResponse struct {
	JobID         string  `json:"job_id"`
	Status        string  `json:"status"`
	QueuePosition int     `json:"queue_position"`
	EstimatedTime float64 `json:"estimated_time"`
	WebsocketURL  string  `json:"websocket_url"`
}

// generate runs the full request-to-job pipeline: classify the
// prompt's intent (C5), surface any blocking ambiguity (C6), resolve
// concrete generation resources against the catalog (C7), create the
// job (C8), and enqueue it with the worker pool.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	prompt, err := sanitizePrompt("prompt", req.Prompt)
	if err != nil || prompt == "" {
		if err == nil {
			err = apperr.New(apperr.BadInput, "prompt is required")
		}
		writeError(w, err)
		return
	}
	negative, err := sanitizePrompt("negative_prompt", req.NegativePrompt)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.ProjectID != "" {
		if err := validateID("project_id", req.ProjectID); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.CharacterID != "" {
		if err := validateID("character_id", req.CharacterID); err != nil {
			writeError(w, err)
			return
		}
	}
	width, height := 512, 512
	if req.Width != 0 {
		if width, err = validateDimension("width", req.Width); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Height != 0 {
		if height, err = validateDimension("height", req.Height); err != nil {
			writeError(w, err)
			return
		}
	}

	ctx := r.Context()
	requestID := fmt.Sprintf("req-%d", len(prompt))
	classification := s.classifier.Classify(ctx, prompt, "", requestID, intent.DefaultPreferences)
	if req.StylePreset != "" {
		classification.StylePreference = req.StylePreset
	}

	report := ambiguity.Process(classification)
	if len(report.BlockingIssues) > 0 {
		s.log.Warn("generate: blocking ambiguity auto-resolved", "count", len(report.BlockingIssues))
	}

	var style *core.GenerationStyle
	if req.ProjectID != "" {
		if project, err := s.catalog.GetProject(ctx, req.ProjectID); err == nil {
			if st, err := s.catalog.GetGenerationStyle(ctx, project.DefaultStyle); err == nil {
				style = st
			}
		}
	}

	plan, err := s.resolver.Plan(ctx, req.ProjectID, prompt, classification, style)
	if err != nil {
		writeError(w, err)
		return
	}

	positive := plan.Resources.PositivePrompt
	if negative == "" {
		negative = plan.Resources.NegativePrompt
	}

	jobType := core.JobTypeImage
	if classification.ContentType == core.ContentVideo {
		jobType = core.JobTypeVideo
	}

	params := map[string]any{
		"negative_prompt": negative,
		"width":           width,
		"height":          height,
		"steps":           plan.Resources.Steps,
		"cfg_scale":       plan.Resources.CFGScale,
		"checkpoint":      plan.Resources.Checkpoint,
		"workflow_file":   plan.Resources.WorkflowFile,
	}
	if jobType == core.JobTypeVideo {
		params["prompt"] = positive
		if classification.DurationSeconds != nil {
			params["duration_seconds"] = *classification.DurationSeconds
		}
	}
	loras := make([]map[string]any, 0, len(plan.Resources.Loras))
	for _, l := range plan.Resources.Loras {
		loras = append(loras, map[string]any{"name": l.Name, "strength": l.Strength})
	}
	params["loras"] = loras

	job, err := s.jobMgr.CreateJob(ctx, jobType, positive, params, req.ProjectID, req.CharacterID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.pool.Enqueue(job.ID); err != nil {
		writeError(w, err)
		return
	}

	estimated := classification.EstimatedTimeMinutes * 60
	writeJSON(w, http.StatusAccepted, generateResponse{
		JobID:         job.ID,
		Status:        string(job.Status),
		QueuePosition: s.pool.QueueDepth(),
		EstimatedTime: estimated,
		WebsocketURL:  "/ws/" + job.ID,
	})
}
