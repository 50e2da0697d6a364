// Package quality scores cropped face images for usability. Detector
// confidence alone does not capture how useful a crop is for embedding
// extraction; blurry or poorly lit crops degrade matching even when detected
// with high confidence.
package quality

import (
	"image"
	"math"
)

// Sub-score weights. They must sum to 1 so the combined score stays in [0,1].
const (
	sharpnessWeight  = 0.4
	brightnessWeight = 0.3
	contrastWeight   = 0.2
	sizeWeight       = 0.1
)

const (
	// sharpnessReference is the Laplacian variance treated as "perfectly sharp".
	sharpnessReference = 1000.0

	// minSweetSpotSize and maxSweetSpotSize bound the crop size range that
	// scores 1.0; smaller or larger crops are penalized proportionally.
	minSweetSpotSize = 100
	maxSweetSpotSize = 300
)

// DefaultScore is returned when a sub-score computation fails. Policy:
// prefer a degraded signal over excluding a candidate outright.
const DefaultScore = 0.5

// Score rates a cropped face image in [0,1]. It never fails: degenerate
// inputs fall back to DefaultScore.
func Score(img image.Image) float64 {
	gray, ok := grayscale(img)
	if !ok {
		return DefaultScore
	}

	width := len(gray)
	height := len(gray[0])

	sharpness := sharpnessScore(gray)
	brightness := brightnessScore(gray)
	contrast := contrastScore(gray)
	size := sizeScore(width, height)

	score := sharpness*sharpnessWeight + brightness*brightnessWeight +
		contrast*contrastWeight + size*sizeWeight

	return clamp01(score)
}

// sharpnessScore measures focus via the variance of a Laplacian edge filter,
// scaled against a fixed reference variance.
func sharpnessScore(gray [][]float64) float64 {
	width := len(gray)
	height := len(gray[0])
	if width < 3 || height < 3 {
		return DefaultScore
	}

	// 4-neighbor Laplacian on interior pixels.
	var sum, sumSq float64
	n := 0
	for x := 1; x < width-1; x++ {
		for y := 1; y < height-1; y++ {
			lap := gray[x-1][y] + gray[x+1][y] + gray[x][y-1] + gray[x][y+1] - 4*gray[x][y]
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	if n == 0 {
		return DefaultScore
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean

	return math.Min(variance/sharpnessReference, 1.0)
}

// brightnessScore peaks at mid-gray and falls off linearly toward pure black
// or pure white.
func brightnessScore(gray [][]float64) float64 {
	var sum float64
	n := 0
	for x := range gray {
		for y := range gray[x] {
			sum += gray[x][y]
			n++
		}
	}
	if n == 0 {
		return DefaultScore
	}

	brightness := sum / float64(n) / 255.0
	return 1.0 - math.Abs(brightness-0.5)*2
}

// contrastScore scales the grayscale standard deviation against half the
// value range.
func contrastScore(gray [][]float64) float64 {
	var sum, sumSq float64
	n := 0
	for x := range gray {
		for y := range gray[x] {
			sum += gray[x][y]
			sumSq += gray[x][y] * gray[x][y]
			n++
		}
	}
	if n == 0 {
		return DefaultScore
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}

	return math.Min(math.Sqrt(variance)/128.0, 1.0)
}

// sizeScore prefers crops that are neither too small nor too large.
func sizeScore(width, height int) float64 {
	switch {
	case width < minSweetSpotSize || height < minSweetSpotSize:
		return float64(min(width, height)) / float64(minSweetSpotSize)
	case width > maxSweetSpotSize || height > maxSweetSpotSize:
		return float64(maxSweetSpotSize) / float64(max(width, height))
	default:
		return 1.0
	}
}

// grayscale converts an image to a column-major plane of luma values (0-255).
// Returns false for empty images.
func grayscale(img image.Image) ([][]float64, bool) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, false
	}

	gray := make([][]float64, width)
	for x := range width {
		gray[x] = make([]float64, height)
		for y := range height {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// ITU-R BT.601 luma formula.
			gray[x][y] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}

	return gray, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
