package quality

import (
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// writeNoisePNG writes a pseudo-random, high-entropy PNG so it passes
// blank detection and scores well on sharpness (noise compresses poorly
// and produces high per-pixel variation, unlike a solid-color frame).
// Its three channels have near-identical spreads, so it does not clear
// the color-distribution gate; 0.4 + 0.3 still exceeds the 0.5 floor.
func writeNoisePNG(t *testing.T, path string, w, h int, seed int64) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	r := rand.New(rand.NewSource(seed))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(r.Intn(256)), G: uint8(r.Intn(256)), B: uint8(r.Intn(256)), A: 255,
			})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func writeBlankPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestGateValidateImagePasses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	writeNoisePNG(t, path, 256, 256, 1)

	g := New()
	result := g.Validate(path, map[string]any{"width": 256, "height": 256}, ExpectedImage)

	if !result.StructuralGates["file_exists"].Passed {
		t.Fatal("expected file_exists to pass")
	}
	if !result.StructuralGates["file_size"].Passed {
		t.Fatalf("expected file_size to pass, got %+v", result.StructuralGates["file_size"])
	}
	if !result.StructuralGates["valid_image"].Passed {
		t.Fatal("expected valid_image to pass")
	}
	if !result.StructuralGates["dimensions"].Passed {
		t.Fatalf("expected dimensions to pass, got %+v", result.StructuralGates["dimensions"])
	}
	if !result.Passed {
		t.Fatalf("expected overall contract to pass, got %+v", result)
	}
	if result.QualityScore <= 0.5 {
		t.Fatalf("expected quality_score > 0.5, got %f", result.QualityScore)
	}
}

func TestGateValidateMissingFile(t *testing.T) {
	g := New()
	result := g.Validate("/nonexistent/path.png", nil, ExpectedImage)
	if result.Passed {
		t.Fatal("expected missing file to fail the contract")
	}
	if result.StructuralGates["file_exists"].Passed {
		t.Fatal("expected file_exists to fail")
	}
	if len(result.Recommendations) == 0 {
		t.Fatal("expected a recommendation for a missing file")
	}
}

func TestGateValidateTooSmallFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.png")
	if err := os.WriteFile(path, []byte("not a real png but tiny"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	g := New()
	result := g.Validate(path, nil, ExpectedImage)
	if result.StructuralGates["file_size"].Passed {
		t.Fatal("expected tiny file to fail file_size gate")
	}
	if result.Passed {
		t.Fatal("expected overall contract to fail for undersized file")
	}
}

func TestGateValidateDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	writeNoisePNG(t, path, 256, 256, 2)

	g := New()
	result := g.Validate(path, map[string]any{"width": 1024, "height": 1024}, ExpectedImage)
	if result.StructuralGates["dimensions"].Passed {
		t.Fatal("expected dimensions gate to fail for mismatched size")
	}
	if result.Passed {
		t.Fatal("expected overall contract to fail when dimensions are off")
	}
}

func TestGateValidateVideoMotionGates(t *testing.T) {
	dir := t.TempDir()
	var framePaths []string
	for i := 0; i < 4; i++ {
		p := filepath.Join(dir, "frame.png")
		p = filepath.Join(dir, "frame"+string(rune('0'+i))+".png")
		writeNoisePNG(t, p, 128, 128, int64(i+10))
		framePaths = append(framePaths, p)
	}

	videoPath := filepath.Join(dir, "out.mp4")
	if err := os.WriteFile(videoPath, make([]byte, minFileSizeVideo+1000), 0o644); err != nil {
		t.Fatalf("write video stub: %v", err)
	}

	g := New()
	result := g.Validate(videoPath, map[string]any{
		"batch_size":  4,
		"frame_paths": framePaths,
	}, ExpectedVideo)

	if !result.StructuralGates["frame_count"].Passed {
		t.Fatalf("expected frame_count to pass, got %+v", result.StructuralGates["frame_count"])
	}
	if !result.MotionGates["unique_frames"].Passed {
		t.Fatalf("expected unique_frames to pass for distinct noise frames, got %+v", result.MotionGates["unique_frames"])
	}
}

func TestGateValidateVideoInsufficientFrames(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "out.mp4")
	if err := os.WriteFile(videoPath, make([]byte, minFileSizeVideo+1000), 0o644); err != nil {
		t.Fatalf("write video stub: %v", err)
	}

	g := New()
	result := g.Validate(videoPath, map[string]any{"batch_size": 16, "frame_paths": []string{}}, ExpectedVideo)
	if result.StructuralGates["frame_count"].Passed {
		t.Fatal("expected frame_count to fail with zero frames")
	}
	if result.Passed {
		t.Fatal("expected overall contract to fail")
	}
}

func TestGateUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xyz")
	if err := os.WriteFile(path, make([]byte, 30000), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	g := New()
	result := g.Validate(path, nil, ExpectedAuto)
	if result.Error == "" {
		t.Fatal("expected an error for unknown extension")
	}
	if result.Passed {
		t.Fatal("expected unknown extension to fail")
	}
}
