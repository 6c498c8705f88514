// Package classify contains the idea classification core: the similarity
// router, the LLM reasoner, the pattern-match fallback, and the orchestrator
// that composes them into a fallback chain which always terminates in a
// valid result.
package classify

import (
	"context"
	"errors"

	"github.com/sortdeck/sortdeck/pkg/models"
)

// ErrMalformedResponse is returned when an LLM response violates the JSON
// contract. It is never retried with the same prompt.
var ErrMalformedResponse = errors.New("malformed response")

// Storage is the narrow contract the classifier holds on persistence.
type Storage interface {
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	ListBucketsByPlan(ctx context.Context, planID string) ([]models.Bucket, error)
	CreateBucket(ctx context.Context, spec models.BucketSpec) (*models.Bucket, error)
	UpdateBucket(ctx context.Context, id string, patch models.BucketPatch) (*models.Bucket, error)
	CreateIdea(ctx context.Context, planID, title, description string) (*models.Idea, error)
	UpdateIdea(ctx context.Context, id string, patch models.IdeaPatch) (*models.Idea, error)
	ListUnbucketedIdeas(ctx context.Context, planID string) ([]models.Idea, error)
}

// Embedder turns text into a unit-length vector of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) (models.Vector, error)
	Dimension() int
}
