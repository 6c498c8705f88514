package classify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sortdeck/sortdeck/internal/provider/llm"
	"github.com/sortdeck/sortdeck/pkg/models"
)

// accentColorPattern validates model-proposed hex colors.
var accentColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// defaultPalette provides accent colors when the model proposes none or an
// invalid one, rotated by the bucket's position in the plan.
var defaultPalette = []string{"#6366F1", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6", "#14B8A6"}

// Reasoner runs the prompt-driven classification operations. It is not
// self-healing: every error propagates to the orchestrator, which owns the
// fallback chain.
type Reasoner struct {
	completer llm.Completer
	storage   Storage
	embedder  Embedder
	vectors   *BucketVectorCache
}

// NewReasoner creates a reasoner.
func NewReasoner(completer llm.Completer, storage Storage, embedder Embedder, vectors *BucketVectorCache) *Reasoner {
	return &Reasoner{completer: completer, storage: storage, embedder: embedder, vectors: vectors}
}

type emergentProposal struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
	IdeaIndices []int  `json:"idea_indices"`
}

type emergentResponse struct {
	Buckets []emergentProposal `json:"buckets"`
}

// CreateEmergentBuckets proposes initial categories for a bucket-less plan
// from a batch of ideas and returns the created buckets plus the mapping of
// idea ID to assigned bucket ID. Ideas the model leaves unassigned (or
// assigns twice) stay unbucketed rather than being dropped or duplicated.
func (r *Reasoner) CreateEmergentBuckets(ctx context.Context, planID string, ideas []models.Idea, planContext string) ([]models.Bucket, map[string]string, error) {
	raw, err := r.completer.Complete(ctx, buildEmergentPrompt(ideas, planContext))
	if err != nil {
		return nil, nil, err
	}

	var parsed emergentResponse
	if err := decodeObject(raw, &parsed); err != nil {
		return nil, nil, err
	}
	if len(parsed.Buckets) == 0 {
		return nil, nil, fmt.Errorf("%w: no buckets proposed", ErrMalformedResponse)
	}
	if len(parsed.Buckets) > 3 {
		parsed.Buckets = parsed.Buckets[:3]
	}

	created := make([]models.Bucket, 0, len(parsed.Buckets))
	assignments := make(map[string]string, len(ideas))
	for i, proposal := range parsed.Buckets {
		title := strings.TrimSpace(proposal.Title)
		if title == "" {
			continue
		}

		bucket, err := r.createBucket(ctx, planID, title, proposal.Description, proposal.Color, i)
		if err != nil {
			return created, assignments, fmt.Errorf("create emergent bucket: %w", err)
		}
		created = append(created, *bucket)

		for _, idx := range proposal.IdeaIndices {
			if idx < 1 || idx > len(ideas) {
				log.Warn().Int("index", idx).Msg("Emergent assignment index out of range")
				continue
			}
			ideaID := ideas[idx-1].ID
			if _, taken := assignments[ideaID]; taken {
				// Exactly one bucket per idea; first assignment wins.
				continue
			}
			assignments[ideaID] = bucket.ID
		}
	}

	if len(created) == 0 {
		return nil, nil, fmt.Errorf("%w: every proposed bucket was empty", ErrMalformedResponse)
	}
	return created, assignments, nil
}

type newBucketResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// ProposeNewBucket asks for one new category for an idea that matched none
// of the existing buckets.
func (r *Reasoner) ProposeNewBucket(ctx context.Context, idea *models.Idea, rejected []models.ScoredBucket) (*models.Bucket, error) {
	raw, err := r.completer.Complete(ctx, buildNewBucketPrompt(idea, rejected))
	if err != nil {
		return nil, err
	}

	var parsed newBucketResponse
	if err := decodeObject(raw, &parsed); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: proposed bucket has no title", ErrMalformedResponse)
	}

	bucket, err := r.createBucket(ctx, idea.PlanID, title, parsed.Description, parsed.Color, len(rejected))
	if err != nil {
		return nil, fmt.Errorf("create proposed bucket: %w", err)
	}
	return bucket, nil
}

type tieBreakResponse struct {
	Choice int `json:"choice"`
}

// BreakTie selects one bucket among near-equal candidates. An out-of-range
// choice defaults to the first (highest-similarity) candidate instead of
// erroring.
func (r *Reasoner) BreakTie(ctx context.Context, idea *models.Idea, tied []models.ScoredBucket) (models.ScoredBucket, error) {
	raw, err := r.completer.Complete(ctx, buildTieBreakPrompt(idea, tied))
	if err != nil {
		return models.ScoredBucket{}, err
	}

	var parsed tieBreakResponse
	if err := decodeObject(raw, &parsed); err != nil {
		return models.ScoredBucket{}, err
	}

	if parsed.Choice < 1 || parsed.Choice > len(tied) {
		log.Warn().
			Int("choice", parsed.Choice).
			Int("candidates", len(tied)).
			Msg("Tie-break choice out of range, defaulting to best match")
		return tied[0], nil
	}
	return tied[parsed.Choice-1], nil
}

type fullClassifyResponse struct {
	Action      string `json:"action"`
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Confidence  int    `json:"confidence"`
}

// ClassifyFull is the single-shot "assign existing or create new" operation
// used when similarity routing is unavailable or has failed.
func (r *Reasoner) ClassifyFull(ctx context.Context, idea *models.Idea, buckets []models.Bucket) (*models.ClassificationResult, error) {
	raw, err := r.completer.Complete(ctx, buildFullClassifyPrompt(idea, buckets))
	if err != nil {
		return nil, err
	}

	var parsed fullClassifyResponse
	if err := decodeObject(raw, &parsed); err != nil {
		return nil, err
	}

	confidence := parsed.Confidence
	if confidence < 1 || confidence > 100 {
		confidence = 75
	}

	switch parsed.Action {
	case "assign":
		if parsed.Index < 1 || parsed.Index > len(buckets) {
			return nil, fmt.Errorf("%w: assign index %d out of range", ErrMalformedResponse, parsed.Index)
		}
		return &models.ClassificationResult{
			BucketID:   buckets[parsed.Index-1].ID,
			Confidence: confidence,
		}, nil
	case "create":
		title := strings.TrimSpace(parsed.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: create action has no title", ErrMalformedResponse)
		}
		bucket, err := r.createBucket(ctx, idea.PlanID, title, parsed.Description, parsed.Color, len(buckets))
		if err != nil {
			return nil, fmt.Errorf("create classified bucket: %w", err)
		}
		return &models.ClassificationResult{
			BucketID:    bucket.ID,
			Confidence:  confidence,
			IsNewBucket: true,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformedResponse, parsed.Action)
	}
}

// createBucket persists a reasoner-created bucket, best-effort generates its
// embedding, and invalidates the plan's vector cache. Embedding failures are
// logged but never abort the classification outcome.
func (r *Reasoner) createBucket(ctx context.Context, planID, title, description, color string, position int) (*models.Bucket, error) {
	if !accentColorPattern.MatchString(color) {
		color = defaultPalette[position%len(defaultPalette)]
	}

	spec := models.BucketSpec{
		PlanID:      planID,
		Title:       title,
		Description: strings.TrimSpace(description),
		AccentColor: color,
	}

	bucket := &models.Bucket{PlanID: planID, Title: spec.Title, Description: spec.Description}
	if vec, err := r.embedder.Embed(ctx, bucket.EmbeddingText()); err != nil {
		log.Warn().Err(err).Str("title", title).Msg("Embedding generation failed for new bucket")
	} else {
		spec.Embedding = vec
	}

	createdBucket, err := r.storage.CreateBucket(ctx, spec)
	if err != nil {
		return nil, err
	}

	r.vectors.Invalidate(planID)
	log.Info().
		Str("bucketId", createdBucket.ID).
		Str("planId", planID).
		Str("title", title).
		Msg("Reasoner created bucket")
	return createdBucket, nil
}
