package classify

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/sortdeck/sortdeck/internal/cache"
	"github.com/sortdeck/sortdeck/internal/config"
	"github.com/sortdeck/sortdeck/pkg/models"
)

const vectorCacheKeyPrefix = "bucketvec:"

// BucketVectorCache is the short-TTL map from plan to bucket vectors.
// Correctness is invalidation-driven: every bucket create or text change must
// call Invalidate synchronously. The TTL only covers missed invalidations.
type BucketVectorCache struct {
	cache    cache.Cache
	storage  Storage
	embedder Embedder
	tunables func() config.Tunables
}

// NewBucketVectorCache creates a bucket vector cache.
func NewBucketVectorCache(c cache.Cache, storage Storage, embedder Embedder, tunables func() config.Tunables) *BucketVectorCache {
	return &BucketVectorCache{cache: c, storage: storage, embedder: embedder, tunables: tunables}
}

// Vectors returns the bucket-id-to-vector map for a plan, populating the
// cache on miss. Buckets whose embedding cannot be computed are excluded;
// an empty map means no similarity signal is available, not an error.
func (c *BucketVectorCache) Vectors(ctx context.Context, planID string) (map[string]models.Vector, error) {
	if data, ok := c.cache.Get(vectorCacheKeyPrefix + planID); ok {
		var cached map[string]models.Vector
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		// Corrupt entry; repopulate.
		c.cache.Invalidate(vectorCacheKeyPrefix + planID)
	}

	buckets, err := c.storage.ListBucketsByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	dim := c.embedder.Dimension()
	vectors := make(map[string]models.Vector, len(buckets))
	for i := range buckets {
		bucket := &buckets[i]
		if bucket.Embedding.HasDim(dim) {
			vectors[bucket.ID] = bucket.Embedding
			continue
		}

		// Missing or wrong-dimension embedding: compute one now. A failure
		// excludes this bucket from scoring but never aborts population.
		vec, err := c.embedder.Embed(ctx, bucket.EmbeddingText())
		if err != nil {
			log.Warn().Err(err).
				Str("bucketId", bucket.ID).
				Msg("Embedding generation failed during cache population")
			continue
		}
		vectors[bucket.ID] = vec

		if _, err := c.storage.UpdateBucket(ctx, bucket.ID, models.BucketPatch{Embedding: vec}); err != nil {
			// The in-memory value still serves this request.
			log.Warn().Err(err).
				Str("bucketId", bucket.ID).
				Msg("Failed to persist regenerated bucket embedding")
		}
	}

	if data, err := json.Marshal(vectors); err == nil {
		c.cache.Set(vectorCacheKeyPrefix+planID, data, c.tunables().CacheTTL())
	}
	return vectors, nil
}

// Invalidate drops a plan's cached vectors. Must be called synchronously by
// any operation that creates, or changes the text of, a bucket in the plan.
func (c *BucketVectorCache) Invalidate(planID string) {
	c.cache.Invalidate(vectorCacheKeyPrefix + planID)
}
