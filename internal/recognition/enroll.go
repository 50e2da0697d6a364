package recognition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/store"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// Enroll registers a student from several face images. At least
// MinEnrollmentSamples of the provided images must yield a usable embedding;
// samples where detection or embedding fails are skipped. The stored
// embedding is the unit-normalized mean of the per-sample embeddings.
//
// Re-enrolling an existing student ID replaces the stored record in place.
func (e *Engine) Enroll(ctx context.Context, studentID, name string, images [][]byte) error {
	normalizedID, err := store.ValidateStudentID(studentID)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	if len(images) < constants.MinEnrollmentSamples {
		return fmt.Errorf("%w: got %d images, need at least %d",
			ErrNotEnoughSamples, len(images), constants.MinEnrollmentSamples)
	}

	embeddings := make([][]float32, 0, len(images))
	for i, data := range images {
		embedding, err := e.bestFaceEmbedding(ctx, data)
		if err != nil {
			log.Warnf("enrollment sample %d for %s unusable: %v", i+1, normalizedID, err)
			continue
		}
		embeddings = append(embeddings, embedding)
	}

	if len(embeddings) < constants.MinEnrollmentSamples {
		return fmt.Errorf("%w: %d of %d samples usable, need at least %d",
			ErrNotEnoughSamples, len(embeddings), len(images), constants.MinEnrollmentSamples)
	}

	rec := store.IdentityRecord{
		StudentID:    normalizedID,
		Name:         name,
		Embedding:    Normalize(MeanEmbedding(embeddings)),
		RegisteredAt: time.Now().UTC(),
	}

	// Persistence failure fails the whole enrollment.
	if err := e.registry.Register(ctx, rec); err != nil {
		return err
	}

	log.Infof("enrolled %s (%s) from %d/%d samples", normalizedID, name, len(embeddings), len(images))
	return nil
}

// bestFaceEmbedding picks the highest ranked face in an image and extracts
// its embedding.
func (e *Engine) bestFaceEmbedding(ctx context.Context, imageData []byte) ([]float32, error) {
	img, err := vision.Decode(imageData)
	if err != nil {
		return nil, fmt.Errorf("could not decode image: %w", err)
	}
	img = vision.Downscale(img, constants.MaxImageWidth, constants.MaxImageHeight)
	img = vision.Enhance(img)

	jpeg, err := vision.EncodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("could not encode image: %w", err)
	}

	detections, err := e.detector.Detect(ctx, jpeg)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	candidates := FilterCandidates(img, detections)
	if len(candidates) == 0 {
		return nil, ErrNoFace
	}

	return e.embedCandidate(ctx, img, candidates[0])
}
