package quality

import (
	"crypto/md5"
	"fmt"
	"image"
	"image/color"
	"math"
)

const (
	minSSIMVariance = 0.01
	minOpticalFlow  = 0.5
	minSharpness    = 100.0
)

// validateMotion checks that a video's sampled frames actually differ
// from one another, catching the AnimateDiff failure mode of
// re-emitting the same still frame batch_size times.
func validateMotion(frames []image.Image, result *ContractResult) {
	if len(frames) < 2 {
		result.MotionGates["motion_detected"] = GateResult{Passed: false, Value: 0, Threshold: ">0", Details: "not enough frames to detect motion"}
		return
	}

	sample := frames
	if len(sample) > 4 {
		sample = sample[:4]
	}
	grays := make([][]byte, len(sample))
	for i, f := range sample {
		grays[i] = toGrayBytes(f)
	}

	hashes := map[string]bool{}
	for _, g := range grays {
		hashes[fmt.Sprintf("%x", md5.Sum(g))] = true
	}
	result.MotionGates["unique_frames"] = GateResult{
		Passed: len(hashes) > 1, Value: len(hashes), Threshold: ">1",
		Details: fmt.Sprintf("%d/%d unique frames", len(hashes), len(grays)),
	}

	var diffs []float64
	for i := 0; i+1 < len(grays); i++ {
		diffs = append(diffs, meanAbsoluteDiff(grays[i], grays[i+1]))
	}
	avgDiff := mean(diffs)
	// meanAbsoluteDiff is normalized to [0,1]; treat it as the same
	// "how much did the frame change" signal the original SSIM-variance
	// gate measured, since no SSIM implementation exists in the pack.
	result.MotionGates["frame_variance"] = GateResult{
		Passed: avgDiff > minSSIMVariance, Value: avgDiff, Threshold: fmt.Sprintf(">%.2f", minSSIMVariance),
		Details: fmt.Sprintf("frame difference: %.3f", avgDiff),
	}

	flow := opticalFlowProxy(grays[0], grays[1])
	result.MotionGates["optical_flow"] = GateResult{
		Passed: flow > minOpticalFlow, Value: flow, Threshold: fmt.Sprintf(">%.1f", minOpticalFlow),
		Details: fmt.Sprintf("avg motion: %.2f", flow),
	}
}

// scoreVisualQuality samples up to three frames and assesses blank
// detection, sharpness, and color variance, producing quality_score.
func scoreVisualQuality(frames []image.Image, result *ContractResult) {
	if len(frames) == 0 {
		return
	}

	indices := []int{0, len(frames) / 2, len(frames) - 1}
	seen := map[int]bool{}
	var scores []float64
	var lastBlank bool
	var lastBlankRatio, lastSharpness, lastColorVar float64

	for _, idx := range indices {
		if idx < 0 || idx >= len(frames) || seen[idx] {
			continue
		}
		seen[idx] = true

		gray := toGrayBytes(frames[idx])
		blankRatio := blankRatio(gray)
		isBlank := blankRatio > maxBlankRatio
		sharpness := laplacianVariance(gray, frames[idx].Bounds().Dx(), frames[idx].Bounds().Dy())
		colorVar := colorVariance(frames[idx])

		lastBlank, lastBlankRatio, lastSharpness, lastColorVar = isBlank, blankRatio, sharpness, colorVar

		score := 0.0
		if !isBlank {
			score += 0.4
		}
		if sharpness > minSharpness {
			score += 0.3
		}
		if colorVar > minColorVariance {
			score += 0.3
		}
		scores = append(scores, score)
	}

	avg := mean(scores)
	result.QualityScore = avg

	result.QualityGates["blank_detection"] = GateResult{
		Passed: !lastBlank, Value: lastBlankRatio, Threshold: fmt.Sprintf("<%.2f", maxBlankRatio),
		Details: fmt.Sprintf("blank ratio: %.2f", lastBlankRatio),
	}
	result.QualityGates["sharpness"] = GateResult{
		Passed: lastSharpness > minSharpness, Value: lastSharpness, Threshold: fmt.Sprintf(">%.0f", minSharpness),
		Details: fmt.Sprintf("laplacian variance: %.1f", lastSharpness),
	}
	result.QualityGates["color_distribution"] = GateResult{
		Passed: lastColorVar > minColorVariance, Value: lastColorVar, Threshold: fmt.Sprintf(">%.1f", minColorVariance),
		Details: fmt.Sprintf("color variance: %.1f", lastColorVar),
	}
	result.QualityGates["overall_visual"] = GateResult{
		Passed: avg > passScoreFloor, Value: avg, Threshold: fmt.Sprintf(">%.1f", passScoreFloor),
	}
}

func toGrayBytes(img image.Image) []byte {
	b := img.Bounds()
	out := make([]byte, b.Dx()*b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			out[i] = gray.Y
			i++
		}
	}
	return out
}

func blankRatio(gray []byte) float64 {
	seen := [256]bool{}
	unique := 0
	for _, v := range gray {
		if !seen[v] {
			seen[v] = true
			unique++
		}
	}
	denom := 256
	if len(gray) < denom {
		denom = len(gray)
	}
	if denom == 0 {
		return 1
	}
	return 1 - float64(unique)/float64(denom)
}

// laplacianVariance approximates OpenCV's Laplacian-variance sharpness
// metric with a discrete 4-neighbor Laplacian kernel over the grayscale
// plane.
func laplacianVariance(gray []byte, width, height int) float64 {
	if width < 3 || height < 3 {
		return 0
	}
	var values []float64
	at := func(x, y int) float64 { return float64(gray[y*width+x]) }
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			lap := -4*at(x, y) + at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1)
			values = append(values, lap)
		}
	}
	return variance(values)
}

func colorVariance(img image.Image) float64 {
	b := img.Bounds()
	var rs, gs, bs []float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			rs = append(rs, float64(r>>8))
			gs = append(gs, float64(g>>8))
			bs = append(bs, float64(bl>>8))
		}
	}
	stds := []float64{math.Sqrt(variance(rs)), math.Sqrt(variance(gs)), math.Sqrt(variance(bs))}
	return math.Sqrt(variance(stds))
}

// opticalFlowProxy substitutes for Farneback optical flow (no
// implementation anywhere in the example pack): mean per-pixel
// brightness delta between two aligned frames, a cruder but
// directionally equivalent motion-magnitude signal.
func opticalFlowProxy(a, b []byte) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		diff := int(a[i]) - int(b[i])
		if diff < 0 {
			diff = -diff
		}
		sum += float64(diff)
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func meanAbsoluteDiff(a, b []byte) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		diff := int(a[i]) - int(b[i])
		if diff < 0 {
			diff = -diff
		}
		sum += float64(diff)
	}
	return (sum / float64(n)) / 255
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func variance(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := mean(vs)
	var sum float64
	for _, v := range vs {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(vs))
}
