package classify

import (
	"strings"

	"github.com/sortdeck/sortdeck/internal/config"
	"github.com/sortdeck/sortdeck/pkg/models"
)

// stopWords are excluded from keyword extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "shall": true,
	"this": true, "that": true, "these": true, "those": true,
	"and": true, "or": true, "but": true, "if": true, "then": true,
	"for": true, "from": true, "with": true, "about": true, "into": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "by": true,
	"it": true, "its": true, "which": true, "who": true, "what": true,
	"when": true, "where": true, "how": true, "why": true,
}

// extractKeywords tokenizes text on non-alphanumerics, lower-cases,
// drops stopwords and short tokens, and deduplicates.
func extractKeywords(text string) map[string]bool {
	keywords := make(map[string]bool)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	for _, word := range words {
		if len(word) >= 3 && !stopWords[word] {
			keywords[word] = true
		}
	}
	return keywords
}

// MatchByKeywords is the last resort before the default bucket: a keyword
// overlap heuristic used only when the reasoner is unavailable. It returns
// the best-scoring bucket when its derived confidence clears the minimum,
// otherwise (nil, false).
func MatchByKeywords(idea *models.Idea, buckets []models.Bucket, t config.Tunables) (*models.ClassificationResult, bool) {
	ideaKeywords := extractKeywords(idea.EmbeddingText())
	if len(ideaKeywords) == 0 {
		return nil, false
	}

	bestHits := 0
	bestBucketID := ""
	for i := range buckets {
		bucketKeywords := extractKeywords(buckets[i].EmbeddingText())
		hits := 0
		for word := range ideaKeywords {
			if bucketKeywords[word] {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestBucketID = buckets[i].ID
		}
	}

	if bestHits == 0 {
		return nil, false
	}

	confidence := t.PatternBaseConfidence + t.PatternPerHit*bestHits
	if confidence > t.PatternCap {
		confidence = t.PatternCap
	}
	if confidence < t.PatternMinConfidence {
		return nil, false
	}

	return &models.ClassificationResult{
		BucketID:   bestBucketID,
		Confidence: confidence,
	}, true
}
