package quality

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

// uniformImage creates a width x height image filled with a single gray level.
func uniformImage(width, height int, level uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetRGBA(x, y, color.RGBA{R: level, G: level, B: level, A: 255})
		}
	}
	return img
}

// noisyImage creates an image with high-frequency random noise (sharp and
// high contrast).
func noisyImage(width, height int) *image.RGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			v := uint8(rng.Intn(256))
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestScore_AlwaysInRange(t *testing.T) {
	images := map[string]image.Image{
		"1x1":        uniformImage(1, 1, 128),
		"pure black": uniformImage(150, 150, 0),
		"pure white": uniformImage(150, 150, 255),
		"mid gray":   uniformImage(150, 150, 128),
		"noisy":      noisyImage(150, 150),
		"tiny":       uniformImage(2, 2, 64),
		"huge":       uniformImage(500, 400, 128),
	}

	for name, img := range images {
		score := Score(img)
		if score < 0 || score > 1 {
			t.Errorf("%s: score %f out of [0,1]", name, score)
		}
	}
}

func TestScore_EmptyImageFallsBack(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 0, 0))

	if score := Score(img); score != DefaultScore {
		t.Errorf("expected fallback score %f for empty image, got %f", DefaultScore, score)
	}
}

func TestScore_MidGrayBeatsExtremes(t *testing.T) {
	mid := Score(uniformImage(150, 150, 128))
	black := Score(uniformImage(150, 150, 0))
	white := Score(uniformImage(150, 150, 255))

	if mid <= black {
		t.Errorf("expected mid-gray (%f) to outscore black (%f)", mid, black)
	}
	if mid <= white {
		t.Errorf("expected mid-gray (%f) to outscore white (%f)", mid, white)
	}
}

func TestScore_SweetSpotSizeBeatsSmall(t *testing.T) {
	// Same content, different crop sizes: only the size sub-score differs.
	sweet := Score(uniformImage(150, 150, 128))
	small := Score(uniformImage(40, 40, 128))

	if sweet <= small {
		t.Errorf("expected sweet-spot crop (%f) to outscore small crop (%f)", sweet, small)
	}
}

func TestScore_SharpImageBeatsFlat(t *testing.T) {
	sharp := Score(noisyImage(150, 150))
	flat := Score(uniformImage(150, 150, 128))

	if sharp <= flat {
		t.Errorf("expected noisy image (%f) to outscore flat image (%f)", sharp, flat)
	}
}

func TestSizeScore(t *testing.T) {
	cases := []struct {
		width, height int
		expected      float64
	}{
		{150, 150, 1.0},
		{100, 100, 1.0},
		{300, 300, 1.0},
		{50, 150, 0.5},
		{600, 150, 0.5},
		{50, 400, 0.5}, // small side dominates: min(50,400)/100
	}

	for _, tc := range cases {
		if got := sizeScore(tc.width, tc.height); got != tc.expected {
			t.Errorf("sizeScore(%d, %d) = %f, expected %f", tc.width, tc.height, got, tc.expected)
		}
	}
}
