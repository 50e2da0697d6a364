package recognition

import (
	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/store"
)

// MatchEmbedding compares a probe embedding against the full registry using
// both metrics. The cosine check runs first because it is more robust to
// magnitude differences between embedding models; the Euclidean check is the
// fallback acceptance path. Each metric picks its own candidate, so which
// record is accepted depends on which branch fires.
//
// Decision, with t = threshold:
//
//   - empty registry: no match, distance 1.0
//   - max similarity > 1-t: accept the most-similar record,
//     confidence = max similarity
//   - min distance < t: accept the nearest record,
//     confidence = 1 - minDist/t
//   - otherwise: no match
//
// The second return value is the accepted record's Euclidean distance, or
// the minimum distance when no record is accepted.
func MatchEmbedding(probe []float32, records []store.IdentityRecord, threshold float64) (*Match, float64) {
	if len(records) == 0 {
		return nil, constants.MaxDistance
	}

	distIdx := 0
	simIdx := 0
	minDist := EuclideanDistance(probe, records[0].Embedding)
	maxSim := CosineSimilarity(probe, records[0].Embedding)
	for i := 1; i < len(records); i++ {
		if d := EuclideanDistance(probe, records[i].Embedding); d < minDist {
			minDist = d
			distIdx = i
		}
		if s := CosineSimilarity(probe, records[i].Embedding); s > maxSim {
			maxSim = s
			simIdx = i
		}
	}

	var bestIdx int
	var confidence float64
	switch {
	case maxSim > 1-threshold:
		bestIdx = simIdx
		confidence = maxSim
	case minDist < threshold:
		bestIdx = distIdx
		confidence = 1 - minDist/threshold
	default:
		return nil, minDist
	}

	best := records[bestIdx]
	distance := EuclideanDistance(probe, best.Embedding)
	return &Match{
		StudentID:  best.StudentID,
		Name:       best.Name,
		Confidence: confidence,
		Distance:   distance,
		Similarity: CosineSimilarity(probe, best.Embedding),
	}, distance
}
