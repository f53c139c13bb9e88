package ambiguity

import "github.com/storyforge/orchestrator/internal/core"

// Process detects ambiguities on a classification and resolves each
// one, producing the orchestrator-level report the intent pipeline
// acts on before building a generation plan.
func Process(classification core.IntentClassification) core.AmbiguityReport {
	detections := Detect(classification)
	if len(detections) == 0 {
		return core.AmbiguityReport{Confidence: 1.0}
	}

	report := core.AmbiguityReport{
		HasAmbiguities: true,
		Ambiguities:    detections,
	}

	var weightedSum, weightTotal float64
	for _, a := range detections {
		resolution := Resolve(a, classification)
		report.Resolutions = append(report.Resolutions, resolution)

		if resolution.UserInteractionRequired {
			report.RequiresUserInteraction = true
		}
		if a.Blocking {
			report.BlockingIssues = append(report.BlockingIssues, a)
		}

		weight := 1.0
		if resolution.UserInteractionRequired {
			weight = 0.8
		}
		weightedSum += resolution.Confidence * weight
		weightTotal += weight
	}

	if weightTotal > 0 {
		report.Confidence = weightedSum / weightTotal
	}
	return report
}
