package recognition

import (
	"image"
	"image/color"
	"testing"

	"github.com/kozaktomas/face-attend/internal/vision"
)

func frameImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			v := uint8((x*3 + y*7) % 256)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestFilterCandidates_ConfidenceFloor(t *testing.T) {
	img := frameImage(640, 480)
	detections := []vision.Detection{
		{X: 10, Y: 10, Width: 100, Height: 100, Confidence: 0.99},
		{X: 200, Y: 10, Width: 100, Height: 100, Confidence: 0.95}, // at floor, dropped
		{X: 400, Y: 10, Width: 100, Height: 100, Confidence: 0.80},
	}

	candidates := FilterCandidates(img, detections)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Detection.X != 10 {
		t.Errorf("wrong candidate survived: %+v", candidates[0].Detection)
	}
}

func TestFilterCandidates_MinSize(t *testing.T) {
	img := frameImage(640, 480)
	detections := []vision.Detection{
		{X: 10, Y: 10, Width: 60, Height: 100, Confidence: 0.99},  // width at limit, dropped
		{X: 200, Y: 10, Width: 100, Height: 60, Confidence: 0.99}, // height at limit, dropped
		{X: 400, Y: 10, Width: 61, Height: 61, Confidence: 0.99},
	}

	candidates := FilterCandidates(img, detections)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Detection.Width != 61 {
		t.Errorf("wrong candidate survived: %+v", candidates[0].Detection)
	}
}

func TestFilterCandidates_ClampsToBounds(t *testing.T) {
	img := frameImage(300, 300)
	detections := []vision.Detection{
		// Box overflows right and bottom edges; still large enough after clamping.
		{X: 200, Y: 200, Width: 200, Height: 200, Confidence: 0.99},
		// Box fully outside the image.
		{X: 400, Y: 400, Width: 100, Height: 100, Confidence: 0.99},
	}

	candidates := FilterCandidates(img, detections)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	d := candidates[0].Detection
	if d.X != 200 || d.Y != 200 || d.Width != 100 || d.Height != 100 {
		t.Errorf("unexpected clamped box: %+v", d)
	}
}

func TestFilterCandidates_NegativeOriginClamped(t *testing.T) {
	img := frameImage(300, 300)
	detections := []vision.Detection{
		{X: -20, Y: -30, Width: 120, Height: 130, Confidence: 0.99},
	}

	candidates := FilterCandidates(img, detections)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	d := candidates[0].Detection
	if d.X != 0 || d.Y != 0 || d.Width != 100 || d.Height != 100 {
		t.Errorf("unexpected clamped box: %+v", d)
	}
}

func TestFilterCandidates_SortedByRank(t *testing.T) {
	img := frameImage(640, 480)
	// Identical crops, different confidences: quality is equal, so ordering
	// follows confidence.
	detections := []vision.Detection{
		{X: 10, Y: 10, Width: 150, Height: 150, Confidence: 0.96},
		{X: 10, Y: 10, Width: 150, Height: 150, Confidence: 0.99},
		{X: 10, Y: 10, Width: 150, Height: 150, Confidence: 0.97},
	}

	candidates := FilterCandidates(img, detections)
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Rank() > candidates[i-1].Rank() {
			t.Errorf("candidates not sorted by rank: %f after %f",
				candidates[i].Rank(), candidates[i-1].Rank())
		}
	}
	if candidates[0].Detection.Confidence != 0.99 {
		t.Errorf("expected most confident candidate first, got %f", candidates[0].Detection.Confidence)
	}
}
