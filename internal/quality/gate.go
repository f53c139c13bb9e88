// Package quality is the Quality Gate (C11): deterministic contract
// validation of a produced artifact against structural, motion, and
// visual-quality thresholds. A generation only passes when every
// structural and motion gate passes and quality_score exceeds 0.5.
package quality

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/storyforge/orchestrator/internal/core"
)

const (
	minFileSizeVideo = 50_000
	minFileSizeImage = 20_000
	maxFileSize      = 100_000_000

	dimensionTolerance = 0.05

	maxBlankRatio    = 0.90
	minColorVariance = 10.0
	passScoreFloor   = 0.5
)

// GateResult is one structural/motion/quality check outcome.
type GateResult struct {
	Passed    bool   `json:"passed"`
	Value     any    `json:"value"`
	Threshold any    `json:"threshold"`
	Details   string `json:"details,omitempty"`
}

// ContractResult is the full validation outcome for one artifact.
type ContractResult struct {
	Passed           bool                  `json:"passed"`
	QualityScore     float64               `json:"quality_score"`
	StructuralGates  map[string]GateResult `json:"structural_gates"`
	MotionGates      map[string]GateResult `json:"motion_gates"`
	QualityGates     map[string]GateResult `json:"quality_gates"`
	FrameSamples     []string              `json:"frame_samples,omitempty"`
	Recommendations  []string              `json:"recommendations,omitempty"`
	GenerationParams map[string]any        `json:"generation_params,omitempty"`
	Error            string                `json:"error,omitempty"`
}

// ToCore converts a validation outcome into the catalog-persisted shape,
// coercing each gate's value/threshold to float64 (numeric where the
// check produced one, 1/0 for a boolean pass/fail, NaN otherwise).
func (r ContractResult) ToCore(params core.GenerationParams) core.ContractResult {
	return core.ContractResult{
		Passed:           r.Passed,
		QualityScore:     r.QualityScore,
		StructuralGates:  toCoreGates(r.StructuralGates),
		MotionGates:      toCoreGates(r.MotionGates),
		QualityGates:     toCoreGates(r.QualityGates),
		FrameSamples:     r.FrameSamples,
		Recommendations:  r.Recommendations,
		GenerationParams: params,
		Error:            r.Error,
	}
}

func toCoreGates(gates map[string]GateResult) map[string]core.Gate {
	out := make(map[string]core.Gate, len(gates))
	for name, g := range gates {
		out[name] = core.Gate{
			Passed:    g.Passed,
			Value:     toFloat(g.Value),
			Threshold: toFloat(g.Threshold),
			Details:   g.Details,
		}
	}
	return out
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

// ExpectedType narrows which gate set Validate applies.
type ExpectedType string

const (
	ExpectedAuto  ExpectedType = "auto"
	ExpectedImage ExpectedType = "image"
	ExpectedVideo ExpectedType = "video"
)

var videoExts = map[string]bool{".mp4": true, ".webm": true, ".avi": true, ".mov": true, ".gif": true}
var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".bmp": true}

// Gate runs the quality contract against generated files. Video motion
// gates are implemented against a pre-decoded frame sequence rather
// than shelling out to ffmpeg/ffprobe, since neither has any Go
// binding anywhere in the example pack; callers that generate video
// supply frames extracted by their own pipeline.
type Gate struct{}

func New() *Gate { return &Gate{} }

// Validate runs the full contract against one artifact.
func (g *Gate) Validate(filePath string, params map[string]any, expected ExpectedType) ContractResult {
	result := ContractResult{
		StructuralGates:  map[string]GateResult{},
		MotionGates:      map[string]GateResult{},
		QualityGates:     map[string]GateResult{},
		GenerationParams: params,
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	isVideo := videoExts[ext]
	isImage := imageExts[ext]
	switch expected {
	case ExpectedVideo:
		isVideo, isImage = true, false
	case ExpectedImage:
		isVideo, isImage = false, true
	}

	info, err := os.Stat(filePath)
	exists := err == nil
	result.StructuralGates["file_exists"] = GateResult{Passed: exists, Value: exists, Threshold: true, Details: filePath}
	if !exists {
		result.Recommendations = append(result.Recommendations, "file does not exist - generation may have failed")
		result.Error = "file not found"
		return result
	}

	minSize := int64(minFileSizeImage)
	if isVideo {
		minSize = minFileSizeVideo
	}
	size := info.Size()
	sizeOK := size >= minSize && size <= maxFileSize
	result.StructuralGates["file_size"] = GateResult{
		Passed: sizeOK, Value: size, Threshold: fmt.Sprintf("%d-%d", minSize, maxFileSize),
		Details: fmt.Sprintf("%.1fKB", float64(size)/1024),
	}
	if !sizeOK {
		result.Recommendations = append(result.Recommendations, fmt.Sprintf("file size %.1fKB is abnormal", float64(size)/1024))
	}

	switch {
	case isVideo:
		g.validateVideo(filePath, params, &result)
	case isImage:
		g.validateImage(filePath, params, &result)
	default:
		result.Error = "unknown file extension: " + ext
		result.Recommendations = append(result.Recommendations, "unknown file type")
		return result
	}

	result.Passed = allPassed(result.StructuralGates) && allPassed(result.MotionGates) && result.QualityScore > passScoreFloor
	return result
}

func allPassed(gates map[string]GateResult) bool {
	for _, g := range gates {
		if !g.Passed {
			return false
		}
	}
	return true
}

func (g *Gate) validateImage(filePath string, params map[string]any, result *ContractResult) {
	f, err := os.Open(filePath)
	if err != nil {
		result.Error = err.Error()
		return
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		result.StructuralGates["valid_image"] = GateResult{Passed: false, Value: "invalid", Threshold: "valid", Details: err.Error()}
		result.Recommendations = append(result.Recommendations, "image file is corrupt or invalid")
		return
	}
	result.StructuralGates["valid_image"] = GateResult{Passed: true, Value: "valid", Threshold: "valid"}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	checkDimensions(params, width, height, result)

	result.FrameSamples = []string{filePath}
	scoreVisualQuality([]image.Image{img}, result)
}

// checkDimensions compares decoded width/height against requested
// generation params within dimensionTolerance, when params carry them.
func checkDimensions(params map[string]any, width, height int, result *ContractResult) {
	wantW, wOK := intParam(params, "width")
	wantH, hOK := intParam(params, "height")
	if !wOK || !hOK {
		return
	}
	wOut := math.Abs(float64(width-wantW)) > float64(wantW)*dimensionTolerance
	hOut := math.Abs(float64(height-wantH)) > float64(wantH)*dimensionTolerance
	passed := !wOut && !hOut
	result.StructuralGates["dimensions"] = GateResult{
		Passed: passed, Value: fmt.Sprintf("%dx%d", width, height),
		Threshold: fmt.Sprintf("%dx%d ± %.0f%%", wantW, wantH, dimensionTolerance*100),
	}
	if !passed {
		result.Recommendations = append(result.Recommendations, "output dimensions deviate from requested size")
	}
}

func intParam(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// validateVideo checks frame count against generation_params'
// batch_size and runs the motion/visual gates against frames the
// caller has already extracted and listed under params["frame_paths"].
func (g *Gate) validateVideo(filePath string, params map[string]any, result *ContractResult) {
	framePaths, _ := params["frame_paths"].([]string)

	batchSize, _ := intParam(params, "batch_size")
	if batchSize == 0 {
		batchSize = 16
	}
	frameCount := len(framePaths)
	result.StructuralGates["frame_count"] = GateResult{
		Passed: frameCount >= batchSize, Value: frameCount, Threshold: fmt.Sprintf(">=%d", batchSize),
		Details: fmt.Sprintf("%d frames", frameCount),
	}
	if frameCount < batchSize {
		result.Recommendations = append(result.Recommendations, fmt.Sprintf("only %d frames, need %d+", frameCount, batchSize))
	}

	frames := decodeFrames(framePaths)
	validateMotion(frames, result)
	result.FrameSamples = sampleFrames(framePaths)
	scoreVisualQuality(frames, result)
}

func decodeFrames(paths []string) []image.Image {
	var out []image.Image
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err == nil {
			out = append(out, img)
		}
	}
	return out
}

func sampleFrames(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	mid := len(paths) / 2
	last := len(paths) - 1
	samples := []string{paths[0]}
	if mid != 0 {
		samples = append(samples, paths[mid])
	}
	if last != 0 && last != mid {
		samples = append(samples, paths[last])
	}
	return samples
}
