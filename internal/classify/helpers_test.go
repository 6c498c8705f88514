package classify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sortdeck/sortdeck/internal/store"
	"github.com/sortdeck/sortdeck/pkg/models"
)

// fakeStorage is an in-memory Storage with injectable failures.
type fakeStorage struct {
	mu      sync.Mutex
	plans   map[string]*models.Plan
	buckets map[string]*models.Bucket
	ideas   map[string]*models.Idea
	seq     int64

	listBucketsErr    error
	createBucketErr   error
	updateIdeaErr     error
	bucketListCalls   int
	bucketUpdateCalls int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		plans:   make(map[string]*models.Plan),
		buckets: make(map[string]*models.Bucket),
		ideas:   make(map[string]*models.Idea),
	}
}

func (f *fakeStorage) addPlan(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans[id] = &models.Plan{ID: id, Title: title}
}

func (f *fakeStorage) addBucket(b models.Bucket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if b.DisplayOrder == 0 {
		b.DisplayOrder = int(f.seq)
	}
	b.CreatedAtEpoch = f.seq
	f.buckets[b.ID] = &b
}

func (f *fakeStorage) addIdea(i models.Idea) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	i.CreatedAtEpoch = f.seq
	f.ideas[i.ID] = &i
}

func (f *fakeStorage) idea(id string) models.Idea {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.ideas[id]
}

func (f *fakeStorage) bucket(id string) models.Bucket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.buckets[id]
}

func (f *fakeStorage) GetPlan(_ context.Context, id string) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	plan, ok := f.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *plan
	return &copied, nil
}

func (f *fakeStorage) ListBucketsByPlan(_ context.Context, planID string) ([]models.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bucketListCalls++
	if f.listBucketsErr != nil {
		return nil, f.listBucketsErr
	}
	var out []models.Bucket
	for _, b := range f.buckets {
		if b.PlanID == planID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (f *fakeStorage) CreateBucket(_ context.Context, spec models.BucketSpec) (*models.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createBucketErr != nil {
		return nil, f.createBucketErr
	}
	f.seq++
	bucket := &models.Bucket{
		ID:             fmt.Sprintf("bucket-%d", f.seq),
		PlanID:         spec.PlanID,
		Title:          spec.Title,
		Description:    spec.Description,
		AccentColor:    spec.AccentColor,
		DisplayOrder:   int(f.seq),
		Embedding:      spec.Embedding,
		CreatedAtEpoch: f.seq,
	}
	f.buckets[bucket.ID] = bucket
	copied := *bucket
	return &copied, nil
}

func (f *fakeStorage) UpdateBucket(_ context.Context, id string, patch models.BucketPatch) (*models.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bucketUpdateCalls++
	bucket, ok := f.buckets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Title != nil {
		bucket.Title = *patch.Title
	}
	if patch.Description != nil {
		bucket.Description = *patch.Description
	}
	if patch.AccentColor != nil {
		bucket.AccentColor = *patch.AccentColor
	}
	if patch.DisplayOrder != nil {
		bucket.DisplayOrder = *patch.DisplayOrder
	}
	if patch.ClearEmbedding {
		bucket.Embedding = nil
	} else if patch.Embedding != nil {
		bucket.Embedding = patch.Embedding
	}
	copied := *bucket
	return &copied, nil
}

func (f *fakeStorage) CreateIdea(_ context.Context, planID, title, description string) (*models.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	idea := &models.Idea{
		ID:             fmt.Sprintf("idea-%d", f.seq),
		PlanID:         planID,
		Title:          title,
		Description:    description,
		CreatedAtEpoch: f.seq,
	}
	f.ideas[idea.ID] = idea
	copied := *idea
	return &copied, nil
}

func (f *fakeStorage) UpdateIdea(_ context.Context, id string, patch models.IdeaPatch) (*models.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateIdeaErr != nil {
		return nil, f.updateIdeaErr
	}
	idea, ok := f.ideas[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Title != nil {
		idea.Title = *patch.Title
	}
	if patch.Description != nil {
		idea.Description = *patch.Description
	}
	if patch.BucketID != nil {
		idea.BucketID = *patch.BucketID
	}
	if patch.Confidence != nil {
		idea.Confidence = *patch.Confidence
	}
	if patch.Embedding != nil {
		idea.Embedding = patch.Embedding
	}
	copied := *idea
	return &copied, nil
}

func (f *fakeStorage) ListUnbucketedIdeas(_ context.Context, planID string) ([]models.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Idea
	for _, i := range f.ideas {
		if i.PlanID == planID && i.BucketID == "" {
			out = append(out, *i)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAtEpoch < out[j].CreatedAtEpoch })
	return out, nil
}

// fakeEmbedder returns registered vectors by text, or a fixed fallback.
type fakeEmbedder struct {
	mu      sync.Mutex
	dim     int
	vectors map[string]models.Vector
	err     error
	calls   int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dim: 2, vectors: make(map[string]models.Vector)}
}

func (f *fakeEmbedder) register(text string, vec models.Vector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[text] = vec
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (models.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return models.Vector{0, 1}, nil
}

func (f *fakeEmbedder) Dimension() int {
	return f.dim
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCompleter replays scripted responses; the last one repeats.
type fakeCompleter struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
