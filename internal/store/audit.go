package store

import (
	"context"
	"math"
	"sort"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attend/internal/constants"
)

// DuplicatePair flags two enrolled identities whose embeddings are suspiciously
// close, usually the same person enrolled under two student IDs.
type DuplicatePair struct {
	StudentIDA string  `json:"student_id_a"`
	StudentIDB string  `json:"student_id_b"`
	NameA      string  `json:"name_a"`
	NameB      string  `json:"name_b"`
	Distance   float64 `json:"distance"`
}

// FindDuplicates audits the registry for near-identical embeddings. The
// candidate search runs on an HNSW graph so the audit stays fast for large
// registries; reported distances are exact cosine distances recomputed per
// pair. Pairs closer than maxDistance are returned sorted by distance.
func FindDuplicates(ctx context.Context, registry Registry, maxDistance float64) ([]DuplicatePair, error) {
	records, err := registry.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	byID := make(map[string]IdentityRecord, len(records))

	g := hnsw.NewGraph[string]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	for _, rec := range records {
		if len(rec.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(rec.StudentID, rec.Embedding))
		byID[rec.StudentID] = rec
	}

	seen := make(map[[2]string]bool)
	var pairs []DuplicatePair

	for _, rec := range byID {
		// k=2 so the first hit (the record itself) leaves one true neighbor.
		neighbors := g.Search(rec.Embedding, 2)
		for _, n := range neighbors {
			if n.Key == rec.StudentID {
				continue
			}
			other := byID[n.Key]
			dist := cosineDistance(rec.Embedding, other.Embedding)
			if dist > maxDistance {
				continue
			}

			key := [2]string{rec.StudentID, n.Key}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			a, b := byID[key[0]], byID[key[1]]
			pairs = append(pairs, DuplicatePair{
				StudentIDA: a.StudentID,
				StudentIDB: b.StudentID,
				NameA:      a.Name,
				NameB:      b.Name,
				Distance:   dist,
			})
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Distance < pairs[j].Distance })
	return pairs, nil
}

// cosineDistance is 1 - cosine similarity. Degenerate vectors yield the
// maximum distance.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
