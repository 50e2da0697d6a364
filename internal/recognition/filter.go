package recognition

import (
	"image"
	"sort"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/quality"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// FilterCandidates turns raw detections into ranked face candidates:
//
//  1. drop detections at or below the confidence floor,
//  2. clamp boxes to the image bounds,
//  3. drop boxes that are too small after clamping,
//  4. score the remaining crops and sort by confidence x quality, best first.
//
// The sort is stable so equally ranked faces keep detector order.
func FilterCandidates(img image.Image, detections []vision.Detection) []FaceCandidate {
	bounds := img.Bounds()
	candidates := make([]FaceCandidate, 0, len(detections))

	for _, det := range detections {
		if det.Confidence <= constants.MinDetectionConfidence {
			continue
		}

		clamped, ok := clampToBounds(det, bounds)
		if !ok {
			continue
		}
		if clamped.Width <= constants.MinFaceSize || clamped.Height <= constants.MinFaceSize {
			continue
		}

		crop := vision.Crop(img, image.Rect(
			bounds.Min.X+clamped.X,
			bounds.Min.Y+clamped.Y,
			bounds.Min.X+clamped.X+clamped.Width,
			bounds.Min.Y+clamped.Y+clamped.Height,
		))
		candidates = append(candidates, FaceCandidate{
			Detection: clamped,
			Quality:   quality.Score(crop),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Rank() > candidates[j].Rank()
	})

	return candidates
}

// clampToBounds clips a detection box to the image. Returns false when
// nothing of the box remains inside.
func clampToBounds(det vision.Detection, bounds image.Rectangle) (vision.Detection, bool) {
	width := bounds.Dx()
	height := bounds.Dy()

	x0 := max(det.X, 0)
	y0 := max(det.Y, 0)
	x1 := min(det.X+det.Width, width)
	y1 := min(det.Y+det.Height, height)

	if x0 >= x1 || y0 >= y1 {
		return vision.Detection{}, false
	}

	det.X = x0
	det.Y = y0
	det.Width = x1 - x0
	det.Height = y1 - y0
	return det, true
}
