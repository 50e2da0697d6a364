package recognition

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/store"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// Engine wires the vision collaborators and the registry into the
// recognition pipeline. It is safe for concurrent use; registry access goes
// through snapshots.
type Engine struct {
	detector  vision.Detector
	embedder  vision.Embedder
	registry  store.Registry
	threshold float64
}

// NewEngine creates an engine with the given match threshold (0 < t < 1).
func NewEngine(detector vision.Detector, embedder vision.Embedder, registry store.Registry, threshold float64) *Engine {
	return &Engine{
		detector:  detector,
		embedder:  embedder,
		registry:  registry,
		threshold: threshold,
	}
}

// Threshold returns the configured match threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// ResolveThreshold validates a caller-supplied threshold override, falling
// back to the configured default when it is outside (0, 1).
func (e *Engine) ResolveThreshold(threshold float64) float64 {
	if threshold > 0 && threshold < 1 {
		return threshold
	}
	return e.threshold
}

// Recognize runs the full pipeline on one image with the configured
// threshold: preprocess, detect, filter, embed, match. Per-image failures
// are reported inside the Result rather than as an error so batch callers
// always get one Result per image.
func (e *Engine) Recognize(ctx context.Context, imageData []byte) Result {
	return e.RecognizeWithThreshold(ctx, imageData, e.threshold)
}

// RecognizeWithThreshold is Recognize with a per-request match threshold.
func (e *Engine) RecognizeWithThreshold(ctx context.Context, imageData []byte, threshold float64) Result {
	img, err := vision.Decode(imageData)
	if err != nil {
		return failed(fmt.Errorf("could not decode image: %w", err))
	}
	return e.recognizeImage(ctx, img, threshold)
}

// RecognizeBase64 decodes a base64 payload (with or without a data URL
// prefix) and recognizes it.
func (e *Engine) RecognizeBase64(ctx context.Context, encoded string) Result {
	return e.RecognizeBase64WithThreshold(ctx, encoded, e.threshold)
}

// RecognizeBase64WithThreshold is RecognizeBase64 with a per-request match
// threshold.
func (e *Engine) RecognizeBase64WithThreshold(ctx context.Context, encoded string, threshold float64) Result {
	img, err := vision.DecodeBase64(encoded)
	if err != nil {
		return failed(fmt.Errorf("could not decode image: %w", err))
	}
	return e.recognizeImage(ctx, img, threshold)
}

func (e *Engine) recognizeImage(ctx context.Context, img image.Image, threshold float64) Result {
	img = vision.Downscale(img, constants.MaxImageWidth, constants.MaxImageHeight)
	img = vision.Enhance(img)

	jpeg, err := vision.EncodeJPEG(img)
	if err != nil {
		return failed(fmt.Errorf("could not encode image: %w", err))
	}

	detections, err := e.detector.Detect(ctx, jpeg)
	if err != nil {
		return failed(fmt.Errorf("face detection failed: %w", err))
	}

	candidates := FilterCandidates(img, detections)
	if len(candidates) == 0 {
		return Result{Success: true, Recognized: []Match{}}
	}

	records, err := e.registry.Snapshot(ctx)
	if err != nil {
		return failed(fmt.Errorf("could not read registry: %w", err))
	}

	result := Result{Success: true, FacesDetected: len(candidates), Recognized: []Match{}}
	byID := make(map[string]int)

	for _, cand := range candidates {
		embedding, err := e.embedCandidate(ctx, img, cand)
		if err != nil {
			// A face the embedder cannot handle is skipped, not fatal.
			log.Debugf("skipping face without embedding: %v", err)
			continue
		}

		match, _ := MatchEmbedding(embedding, records, threshold)
		if match == nil {
			result.UnregisteredFaces++
			continue
		}

		// The same student can appear in several candidate crops; keep the
		// most confident hit.
		if idx, ok := byID[match.StudentID]; ok {
			if match.Confidence > result.Recognized[idx].Confidence {
				result.Recognized[idx] = *match
			}
			continue
		}
		byID[match.StudentID] = len(result.Recognized)
		result.Recognized = append(result.Recognized, *match)
	}

	return result
}

// embedCandidate crops a candidate face and extracts its embedding.
func (e *Engine) embedCandidate(ctx context.Context, img image.Image, cand FaceCandidate) ([]float32, error) {
	bounds := img.Bounds()
	det := cand.Detection
	crop := vision.Crop(img, image.Rect(
		bounds.Min.X+det.X,
		bounds.Min.Y+det.Y,
		bounds.Min.X+det.X+det.Width,
		bounds.Min.Y+det.Y+det.Height,
	))

	jpeg, err := vision.EncodeJPEG(crop)
	if err != nil {
		return nil, fmt.Errorf("could not encode face crop: %w", err)
	}
	return e.embedder.Embed(ctx, jpeg)
}

// BatchResult aggregates recognition across a set of images, e.g. several
// camera shots of the same classroom.
type BatchResult struct {
	Results         []Result `json:"results"`
	ImagesProcessed int      `json:"images_processed"`
	Attendance      []Match  `json:"attendance"`
}

// RecognizeBatch processes images concurrently on a bounded worker pool and
// merges per-image matches into one attendance list, keeping each student's
// best confidence across all images.
func (e *Engine) RecognizeBatch(ctx context.Context, images [][]byte) BatchResult {
	return e.RecognizeBatchWithThreshold(ctx, images, e.threshold)
}

// RecognizeBatchWithThreshold is RecognizeBatch with a per-request match
// threshold.
func (e *Engine) RecognizeBatchWithThreshold(ctx context.Context, images [][]byte, threshold float64) BatchResult {
	results := make([]Result, len(images))

	sem := make(chan struct{}, constants.BatchWorkerPoolSize)
	var wg sync.WaitGroup
	for i, data := range images {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, data []byte) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.RecognizeWithThreshold(ctx, data, threshold)
		}(i, data)
	}
	wg.Wait()

	return BatchResult{
		Results:         results,
		ImagesProcessed: len(images),
		Attendance:      MergeAttendance(results),
	}
}

// MergeAttendance collapses per-image matches into one attendance list,
// keeping each student's best confidence. Order follows first appearance.
func MergeAttendance(results []Result) []Match {
	attendance := []Match{}
	byID := make(map[string]int)
	for _, res := range results {
		for _, match := range res.Recognized {
			if idx, ok := byID[match.StudentID]; ok {
				if match.Confidence > attendance[idx].Confidence {
					attendance[idx] = match
				}
				continue
			}
			byID[match.StudentID] = len(attendance)
			attendance = append(attendance, match)
		}
	}
	return attendance
}
