// Package recognition implements the face matching pipeline: filtering raw
// detections, scoring crops, dual-metric matching against the enrolled
// registry, and multi-sample enrollment.
package recognition

import (
	"errors"

	"github.com/kozaktomas/face-attend/internal/event"
	"github.com/kozaktomas/face-attend/internal/vision"
)

var log = event.Log

var (
	// ErrNotEnoughSamples is returned when enrollment cannot extract the
	// minimum number of usable face embeddings.
	ErrNotEnoughSamples = errors.New("recognition: not enough usable enrollment samples")

	// ErrNoFace is returned when an enrollment sample contains no usable face.
	ErrNoFace = errors.New("recognition: no usable face in image")

	// ErrInvalidName is returned when enrollment is attempted with a blank
	// student name.
	ErrInvalidName = errors.New("recognition: student name must not be empty")
)

// FaceCandidate is a detection that survived filtering, with its quality
// score attached.
type FaceCandidate struct {
	Detection vision.Detection
	Quality   float64
}

// Rank is the candidate ordering key: detector confidence weighted by crop
// quality.
func (c FaceCandidate) Rank() float64 {
	return c.Detection.Confidence * c.Quality
}

// Match is one recognized identity within an image.
type Match struct {
	StudentID  string  `json:"student_id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
}

// Result is the outcome of recognizing a single image.
type Result struct {
	Success           bool    `json:"success"`
	Error             string  `json:"error,omitempty"`
	FacesDetected     int     `json:"faces_detected"`
	Recognized        []Match `json:"recognized"`
	UnregisteredFaces int     `json:"unregistered_faces"`
}

// failed builds a degraded Result carrying the error message. Recognition
// never returns a Go error for per-image problems; callers always get a
// reportable Result.
func failed(err error) Result {
	return Result{Success: false, Error: err.Error(), Recognized: []Match{}}
}
