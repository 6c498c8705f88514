package classify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sortdeck/sortdeck/internal/cache"
	"github.com/sortdeck/sortdeck/internal/config"
	"github.com/sortdeck/sortdeck/internal/provider/llm"
	"github.com/sortdeck/sortdeck/pkg/models"
)

// Orchestrator composes the router, reasoner, and fallbacks into the
// classification state machine. ClassifyIdea always produces a terminal
// result; the only observable failure modes are latency and degraded
// confidence.
type Orchestrator struct {
	storage  Storage
	embedder Embedder
	reasoner *Reasoner
	vectors  *BucketVectorCache
	metrics  *Metrics
	tunables atomic.Pointer[config.Tunables]

	// Best-effort suppression of duplicate emergent runs within this
	// process. Not a lock: two conflicting batches remain possible when
	// submissions straddle the debounce window.
	emergentMu       sync.Mutex
	emergentInFlight map[string]bool
}

// NewOrchestrator wires the classification core.
func NewOrchestrator(storage Storage, embedder Embedder, completer llm.Completer, ttlCache cache.Cache, t config.Tunables) *Orchestrator {
	o := &Orchestrator{
		storage:          storage,
		embedder:         embedder,
		metrics:          NewMetrics(),
		emergentInFlight: make(map[string]bool),
	}
	o.tunables.Store(&t)
	o.vectors = NewBucketVectorCache(ttlCache, storage, embedder, o.Tunables)
	o.reasoner = NewReasoner(completer, storage, embedder, o.vectors)
	return o
}

// Tunables returns the current classification tunables.
func (o *Orchestrator) Tunables() config.Tunables {
	return *o.tunables.Load()
}

// SetTunables swaps the tunables; used by the config hot-reload watcher.
func (o *Orchestrator) SetTunables(t config.Tunables) {
	o.tunables.Store(&t)
}

// InvalidatePlan drops a plan's cached bucket vectors. Callers mutating
// bucket text outside the classifier must call this synchronously.
func (o *Orchestrator) InvalidatePlan(planID string) {
	o.vectors.Invalidate(planID)
}

// RefreshBucketEmbedding regenerates a bucket's embedding after its text
// changed and invalidates the plan's cache. A stale embedding is a
// correctness bug, so the stored vector is cleared even when regeneration
// fails.
func (o *Orchestrator) RefreshBucketEmbedding(ctx context.Context, bucket *models.Bucket) {
	o.vectors.Invalidate(bucket.PlanID)

	vec, err := o.embedder.Embed(ctx, bucket.EmbeddingText())
	patch := models.BucketPatch{}
	if err != nil {
		log.Warn().Err(err).Str("bucketId", bucket.ID).Msg("Failed to regenerate bucket embedding")
		patch.ClearEmbedding = true
	} else {
		patch.Embedding = vec
	}
	if _, err := o.storage.UpdateBucket(ctx, bucket.ID, patch); err != nil {
		log.Warn().Err(err).Str("bucketId", bucket.ID).Msg("Failed to store bucket embedding")
	}
}

// SubmitIdea creates an idea and runs the classification entry flow. On a
// plan with no buckets the idea stays unbucketed and emergent creation is
// scheduled once enough ideas have accumulated; the returned result is nil
// in that case.
func (o *Orchestrator) SubmitIdea(ctx context.Context, planID, title, description string) (*models.Idea, *models.ClassificationResult, error) {
	idea, err := o.storage.CreateIdea(ctx, planID, title, description)
	if err != nil {
		return nil, nil, err
	}

	buckets, err := o.storage.ListBucketsByPlan(ctx, planID)
	if err == nil && len(buckets) == 0 {
		o.MaybeScheduleEmergent(ctx, planID)
		return idea, nil, nil
	}

	result := o.ClassifyIdea(ctx, idea)
	idea.BucketID = result.BucketID
	idea.Confidence = result.Confidence
	return idea, result, nil
}

// ClassifyIdea runs the state machine for one idea and always returns a
// terminal ClassificationResult. Similarity-path errors degrade to a full
// LLM classification (retried once on transient failure), then to the
// keyword fallback, then to the default bucket.
func (o *Orchestrator) ClassifyIdea(ctx context.Context, idea *models.Idea) *models.ClassificationResult {
	t := o.Tunables()

	buckets, err := o.storage.ListBucketsByPlan(ctx, idea.PlanID)
	if err != nil {
		log.Warn().Err(err).Str("planId", idea.PlanID).Msg("Listing buckets failed, entering LLM fallback")
		buckets = nil
	}

	llmPath := PathLLMOnly
	llmAttempts := 1
	if err == nil && len(buckets) > 0 && !t.DisableEmbeddings {
		result, path, simErr := o.classifyBySimilarity(ctx, idea, buckets, t)
		if simErr == nil {
			o.persist(ctx, idea, result)
			o.metrics.RecordPath(ctx, path)
			return result
		}
		log.Warn().Err(simErr).
			Str("ideaId", idea.ID).
			Msg("Similarity path failed, entering LLM fallback")
		llmPath = PathLLMFallback
		llmAttempts = 2
	}

	for attempt := 0; attempt < llmAttempts; attempt++ {
		result, llmErr := o.reasoner.ClassifyFull(ctx, idea, buckets)
		if llmErr == nil {
			o.persist(ctx, idea, result)
			o.metrics.RecordPath(ctx, llmPath)
			return result
		}
		log.Warn().Err(llmErr).Str("ideaId", idea.ID).Int("attempt", attempt+1).Msg("LLM classification failed")
		if errors.Is(llmErr, ErrMalformedResponse) {
			// Contract violations are never retried with the same prompt.
			break
		}
	}

	if result, ok := MatchByKeywords(idea, buckets, t); ok {
		o.persist(ctx, idea, result)
		o.metrics.RecordPath(ctx, PathPatternFallback)
		return result
	}

	result := o.defaultBucket(ctx, idea.PlanID, buckets, t)
	o.persist(ctx, idea, result)
	o.metrics.RecordPath(ctx, PathDefaultBucket)
	return result
}

// classifyBySimilarity is the EmbedIdea -> ScoreBuckets -> decide portion of
// the state machine. Any error escalates to the LLM fallback tier.
func (o *Orchestrator) classifyBySimilarity(ctx context.Context, idea *models.Idea, buckets []models.Bucket, t config.Tunables) (*models.ClassificationResult, string, error) {
	vec, err := o.ideaVector(ctx, idea)
	if err != nil {
		return nil, "", err
	}

	vectors, err := o.vectors.Vectors(ctx, idea.PlanID)
	if err != nil {
		return nil, "", err
	}

	route := Route(vec, buckets, vectors, t)
	switch route.Outcome {
	case OutcomeClearWinner:
		return &models.ClassificationResult{
			BucketID:   route.Winner.Bucket.ID,
			Confidence: SimilarityToConfidence(route.Winner.Similarity, t),
		}, PathEmbeddingOnly, nil

	case OutcomeTie:
		chosen, err := o.reasoner.BreakTie(ctx, idea, route.Tied)
		if err != nil {
			return nil, "", err
		}
		return &models.ClassificationResult{
			BucketID:   chosen.Bucket.ID,
			Confidence: SimilarityToConfidence(chosen.Similarity, t),
		}, PathTieBreak, nil

	default:
		// NoMatch and NoSignal both route to the new-bucket proposal.
		bucket, err := o.reasoner.ProposeNewBucket(ctx, idea, route.Scored)
		if err != nil {
			return nil, "", err
		}
		return &models.ClassificationResult{
			BucketID:    bucket.ID,
			Confidence:  t.NewBucketConfidence,
			IsNewBucket: true,
		}, PathNewBucket, nil
	}
}

// ideaVector returns the idea's embedding, reusing a stored vector of the
// right dimension and computing one otherwise. A fresh vector is stashed on
// the idea so persist() writes it back.
func (o *Orchestrator) ideaVector(ctx context.Context, idea *models.Idea) (models.Vector, error) {
	if idea.Embedding.HasDim(o.embedder.Dimension()) {
		return idea.Embedding, nil
	}
	vec, err := o.embedder.Embed(ctx, idea.EmbeddingText())
	if err != nil {
		return nil, err
	}
	idea.Embedding = vec
	return vec, nil
}

// persist writes the assignment back to storage. Persistence failure is
// logged, not raised: the caller still receives the terminal result.
func (o *Orchestrator) persist(ctx context.Context, idea *models.Idea, result *models.ClassificationResult) {
	if result.BucketID == "" {
		return
	}
	patch := models.IdeaPatch{
		BucketID:   &result.BucketID,
		Confidence: &result.Confidence,
	}
	if len(idea.Embedding) > 0 {
		patch.Embedding = idea.Embedding
	}
	if _, err := o.storage.UpdateIdea(ctx, idea.ID, patch); err != nil {
		log.Error().Err(err).
			Str("ideaId", idea.ID).
			Str("bucketId", result.BucketID).
			Msg("Failed to persist classification")
	}
}

// defaultBucket is the terminal tier: the plan's first bucket at the default
// confidence. A plan with no buckets at all gets a literal Unsorted bucket
// so the result guarantee holds.
func (o *Orchestrator) defaultBucket(ctx context.Context, planID string, buckets []models.Bucket, t config.Tunables) *models.ClassificationResult {
	if len(buckets) > 0 {
		return &models.ClassificationResult{
			BucketID:   buckets[0].ID,
			Confidence: t.DefaultConfidence,
		}
	}

	bucket, err := o.storage.CreateBucket(ctx, models.BucketSpec{
		PlanID:      planID,
		Title:       "Unsorted",
		AccentColor: defaultPalette[0],
	})
	if err != nil {
		log.Error().Err(err).Str("planId", planID).Msg("Failed to create fallback bucket")
		return &models.ClassificationResult{Confidence: t.DefaultConfidence}
	}
	o.vectors.Invalidate(planID)
	return &models.ClassificationResult{
		BucketID:    bucket.ID,
		Confidence:  t.DefaultConfidence,
		IsNewBucket: true,
	}
}

// MaybeScheduleEmergent schedules emergent bucket creation for a plan once
// it holds enough unbucketed ideas. The debounce window re-reads state at
// execution time rather than locking, so duplicate batches are suppressed
// best-effort, not exactly-once.
func (o *Orchestrator) MaybeScheduleEmergent(ctx context.Context, planID string) bool {
	t := o.Tunables()

	ideas, err := o.storage.ListUnbucketedIdeas(ctx, planID)
	if err != nil {
		log.Warn().Err(err).Str("planId", planID).Msg("Failed to list ideas for emergent gate")
		return false
	}
	if len(ideas) < t.EmergentMinIdeas {
		return false
	}

	o.emergentMu.Lock()
	if o.emergentInFlight[planID] {
		o.emergentMu.Unlock()
		return false
	}
	o.emergentInFlight[planID] = true
	o.emergentMu.Unlock()

	go o.runEmergent(planID, t)
	return true
}

// runEmergent waits out the debounce window, re-reads the idea list to
// absorb near-simultaneous submissions, and batch-creates the plan's first
// buckets. Failures leave every idea unbucketed for a later attempt.
func (o *Orchestrator) runEmergent(planID string, t config.Tunables) {
	defer func() {
		o.emergentMu.Lock()
		delete(o.emergentInFlight, planID)
		o.emergentMu.Unlock()
	}()

	time.Sleep(t.EmergentDebounce())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ideas, err := o.storage.ListUnbucketedIdeas(ctx, planID)
	if err != nil {
		log.Warn().Err(err).Str("planId", planID).Msg("Emergent re-read failed")
		return
	}
	buckets, err := o.storage.ListBucketsByPlan(ctx, planID)
	if err != nil || len(buckets) > 0 || len(ideas) < t.EmergentMinIdeas {
		// Someone created buckets during the window, or ideas were drained.
		return
	}

	planContext := ""
	if plan, err := o.storage.GetPlan(ctx, planID); err == nil {
		planContext = plan.Title
		if plan.Description != "" {
			planContext += "\n" + plan.Description
		}
	}

	created, assignments, err := o.reasoner.CreateEmergentBuckets(ctx, planID, ideas, planContext)
	if err != nil {
		log.Warn().Err(err).Str("planId", planID).Msg("Emergent bucket creation failed")
		return
	}

	assigned := 0
	for ideaID, bucketID := range assignments {
		confidence := t.EmergentConfidence
		_, err := o.storage.UpdateIdea(ctx, ideaID, models.IdeaPatch{
			BucketID:   &bucketID,
			Confidence: &confidence,
		})
		if err != nil {
			log.Warn().Err(err).Str("ideaId", ideaID).Msg("Failed to persist emergent assignment")
			continue
		}
		assigned++
	}

	o.metrics.RecordPath(ctx, PathEmergent)
	log.Info().
		Str("planId", planID).
		Int("buckets", len(created)).
		Int("assigned", assigned).
		Int("ideas", len(ideas)).
		Msg("Emergent bucket creation completed")
}
