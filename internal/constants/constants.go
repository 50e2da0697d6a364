// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Detection filter constants
const (
	// MinDetectionConfidence is the minimum detector confidence for a face
	// candidate to survive filtering. False positives are costlier than
	// false negatives here, hence the high bar.
	MinDetectionConfidence = 0.95

	// MinFaceSize is the minimum clamped width and height (pixels) for a
	// candidate to be usable for embedding extraction.
	MinFaceSize = 60
)

// Matching constants
const (
	// DefaultMatchThreshold is the default fusion threshold controlling both
	// the similarity-acceptance and distance-acceptance branches.
	DefaultMatchThreshold = 0.6

	// MaxDistance is the sentinel distance returned when no match is possible
	// (empty registry, failed comparison).
	MaxDistance = 1.0
)

// Enrollment constants
const (
	// MinEnrollmentSamples is the minimum number of sample images required,
	// and the minimum number of samples that must yield a usable embedding.
	MinEnrollmentSamples = 2

	// StudentIDMinLen and StudentIDMaxLen bound the normalized student ID.
	StudentIDMinLen = 6
	StudentIDMaxLen = 15
)

// Image processing constants
const (
	// MaxImageWidth and MaxImageHeight bound input images; larger images are
	// downscaled proportionally before detection.
	MaxImageWidth  = 1024
	MaxImageHeight = 768
)

// Batch processing constants
const (
	// BatchWorkerPoolSize is the number of parallel workers for batch
	// attendance recognition.
	BatchWorkerPoolSize = 4

	// EventChannelBuffer is the buffer size for job event listener channels.
	EventChannelBuffer = 64
)

// Duplicate audit constants
const (
	// DuplicateAuditDistance is the maximum cosine distance between two
	// enrolled embeddings for them to be flagged as a likely duplicate.
	DuplicateAuditDistance = 0.15

	// HNSWMaxNeighbors is the M parameter for the duplicate-audit HNSW graph.
	HNSWMaxNeighbors = 16
)
