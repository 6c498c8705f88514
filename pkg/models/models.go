package models

import "strings"

// Plan is a shared planning board that owns buckets and ideas.
type Plan struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	CreatedAtEpoch int64  `json:"created_at_epoch"`
}

// Bucket is a named semantic category grouping related ideas on a plan.
type Bucket struct {
	ID             string `json:"id"`
	PlanID         string `json:"plan_id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	AccentColor    string `json:"accent_color"`
	DisplayOrder   int    `json:"display_order"`
	Embedding      Vector `json:"-"`
	CreatedAtEpoch int64  `json:"created_at_epoch"`
}

// EmbeddingText returns the text a bucket's embedding is derived from.
// The embedding must be regenerated whenever this text changes.
func (b *Bucket) EmbeddingText() string {
	if strings.TrimSpace(b.Description) == "" {
		return b.Title
	}
	return b.Title + "\n" + b.Description
}

// Idea is a single free-text submission a user wants categorized.
// BucketID and Confidence are mutated only by the classification core;
// manual moves elsewhere bypass the classifier.
type Idea struct {
	ID             string `json:"id"`
	PlanID         string `json:"plan_id"`
	BucketID       string `json:"bucket_id,omitempty"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Confidence     int    `json:"confidence"`
	Embedding      Vector `json:"-"`
	CreatedAtEpoch int64  `json:"created_at_epoch"`
}

// EmbeddingText returns the text an idea's embedding is derived from.
func (i *Idea) EmbeddingText() string {
	if strings.TrimSpace(i.Description) == "" {
		return i.Title
	}
	return i.Title + "\n" + i.Description
}

// ScoredBucket pairs a bucket with its cosine similarity to an idea.
// Produced per classification call, never persisted.
type ScoredBucket struct {
	Bucket     *Bucket `json:"bucket"`
	Similarity float64 `json:"similarity"`
}

// ClassificationResult is the sole contract returned to callers.
// Confidence is always derived, never raw similarity.
type ClassificationResult struct {
	BucketID    string `json:"bucket_id"`
	Confidence  int    `json:"confidence"`
	IsNewBucket bool   `json:"is_new_bucket"`
}

// BucketSpec describes a bucket to create.
type BucketSpec struct {
	PlanID       string
	Title        string
	Description  string
	AccentColor  string
	DisplayOrder int
	Embedding    Vector
}

// BucketPatch describes a partial bucket update. Nil fields are left untouched.
// Setting Embedding replaces the stored embedding; ClearEmbedding drops it.
type BucketPatch struct {
	Title          *string
	Description    *string
	AccentColor    *string
	DisplayOrder   *int
	Embedding      Vector
	ClearEmbedding bool
}

// IdeaPatch describes a partial idea update. Nil fields are left untouched.
type IdeaPatch struct {
	Title       *string
	Description *string
	BucketID    *string
	Confidence  *int
	Embedding   Vector
}
