package policy

import (
	"math"

	"github.com/vanetlab/vanetsim/pkg/core"
)

// CosineSimilarity of the direction components of two motion vectors.
// It is 0 when either vector has zero magnitude.
func CosineSimilarity(a, b core.MotionVector) float64 {
	magA := math.Hypot(a.DX, a.DY)
	magB := math.Hypot(b.DX, b.DY)
	if magA == 0 || magB == 0 {
		return 0
	}
	return (a.DX*b.DX + a.DY*b.DY) / (magA * magB)
}

// Health is the normalized proximity of a pair, max(0, 1 - d/connectionDistance).
func Health(distanceKm, connectionDistance float64) float64 {
	return math.Max(0, 1-distanceKm/connectionDistance)
}

// FinalScore ranks a Motion-Weighted candidate.
func FinalScore(params core.Params, a, b core.MotionVector, distanceKm float64) float64 {
	similarity := CosineSimilarity(a, b)
	distanceScore := Health(distanceKm, params.ConnectionDistance)
	return params.SimilarityWeight*similarity + params.DistanceWeight*distanceScore
}
