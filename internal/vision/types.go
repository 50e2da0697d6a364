// Package vision wraps the external face model services (detection and
// embedding extraction) and provides the image plumbing the pipelines need.
package vision

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-attend/internal/event"
)

var log = event.Log

// ErrNoEmbedding is returned by an Embedder when the model produced no
// usable embedding for a crop (too small, too blurry, not a face).
var ErrNoEmbedding = errors.New("vision: no embedding for face crop")

// Point is a single landmark coordinate in image pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Detection is a single face reported by the detector. Coordinates are in
// pixels of the submitted image and may extend past its bounds; callers are
// expected to clamp.
type Detection struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"w"`
	Height     int     `json:"h"`
	Confidence float64 `json:"confidence"`
	Landmarks  []Point `json:"landmarks,omitempty"`
}

// Detector finds faces in a JPEG-encoded image.
type Detector interface {
	Detect(ctx context.Context, imageJPEG []byte) ([]Detection, error)
}

// Embedder produces a fixed-length identity vector for a JPEG-encoded face
// crop. Implementations return ErrNoEmbedding when the model declines the
// crop, and other errors for transport-level failures.
type Embedder interface {
	Embed(ctx context.Context, faceJPEG []byte) ([]float32, error)
}
