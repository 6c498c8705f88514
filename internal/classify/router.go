package classify

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/sortdeck/sortdeck/internal/config"
	"github.com/sortdeck/sortdeck/pkg/models"
	"github.com/sortdeck/sortdeck/pkg/vectormath"
)

// Outcome is the similarity router's verdict for one idea.
type Outcome int

const (
	// OutcomeClearWinner means exactly one bucket leads by more than the
	// tie threshold.
	OutcomeClearWinner Outcome = iota
	// OutcomeTie means several buckets score within the tie threshold of
	// the best; only the LLM resolves ties, never an arbitrary pick.
	OutcomeTie
	// OutcomeNoMatch means the best score is below the similarity floor;
	// a new bucket must be created.
	OutcomeNoMatch
	// OutcomeNoSignal means no bucket could be scored at all.
	OutcomeNoSignal
)

// RouteResult carries the router verdict and its supporting scores.
type RouteResult struct {
	Outcome Outcome
	// Winner is set for OutcomeClearWinner.
	Winner models.ScoredBucket
	// Tied is set for OutcomeTie, sorted by similarity descending.
	Tied []models.ScoredBucket
	// Scored holds every scorable bucket sorted by similarity descending,
	// regardless of outcome. The reasoner shows these to the model.
	Scored []models.ScoredBucket
}

// Route scores an idea's vector against the plan's bucket vectors and decides
// between a clear winner, a tie, no acceptable match, and no signal. Buckets
// without a vector are skipped; scoring failures are logged and skipped.
func Route(ideaVec models.Vector, buckets []models.Bucket, vectors map[string]models.Vector, t config.Tunables) RouteResult {
	scored := make([]models.ScoredBucket, 0, len(buckets))
	for i := range buckets {
		bucket := &buckets[i]
		vec, ok := vectors[bucket.ID]
		if !ok {
			continue
		}
		sim, err := vectormath.Cosine(ideaVec, vec)
		if err != nil {
			log.Warn().Err(err).
				Str("bucketId", bucket.ID).
				Msg("Skipping bucket with unscorable vector")
			continue
		}
		scored = append(scored, models.ScoredBucket{Bucket: bucket, Similarity: sim})
	}

	if len(scored) == 0 {
		return RouteResult{Outcome: OutcomeNoSignal}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	best := scored[0].Similarity
	if best < t.MinSimilarity {
		return RouteResult{Outcome: OutcomeNoMatch, Scored: scored}
	}

	// Inclusive boundary: a score exactly TieThreshold below best still ties.
	tied := make([]models.ScoredBucket, 0, 2)
	for _, sb := range scored {
		if best-sb.Similarity <= t.TieThreshold {
			tied = append(tied, sb)
		}
	}

	if len(tied) == 1 {
		return RouteResult{Outcome: OutcomeClearWinner, Winner: tied[0], Scored: scored}
	}
	return RouteResult{Outcome: OutcomeTie, Tied: tied, Scored: scored}
}

// SimilarityToConfidence maps a similarity score to a confidence value with
// a linear map from [MinSimilarity, 1.0] to [floor, ceiling], clamped.
// Scores at or below the floor map to the confidence floor exactly, keeping
// confidence interpretable and monotonic in similarity.
func SimilarityToConfidence(similarity float64, t config.Tunables) int {
	if similarity <= t.MinSimilarity {
		return t.ConfidenceFloor
	}
	span := 1.0 - t.MinSimilarity
	scale := float64(t.ConfidenceCeiling - t.ConfidenceFloor)
	conf := float64(t.ConfidenceFloor) + (similarity-t.MinSimilarity)/span*scale
	rounded := int(math.Round(conf))
	if rounded > t.ConfidenceCeiling {
		return t.ConfidenceCeiling
	}
	if rounded < t.ConfidenceFloor {
		return t.ConfidenceFloor
	}
	return rounded
}
