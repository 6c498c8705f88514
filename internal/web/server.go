// Package web exposes the HTTP API for plans, buckets, ideas, and usage.
// It depends on the classification core only through ClassificationResult
// and the bucket list; routing internals never leak into responses.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/sortdeck/sortdeck/internal/accounting"
	"github.com/sortdeck/sortdeck/pkg/models"
)

// Storage is the persistence surface the API serves from.
type Storage interface {
	CreatePlan(ctx context.Context, title, description string) (*models.Plan, error)
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	ListBucketsByPlan(ctx context.Context, planID string) ([]models.Bucket, error)
	GetBucket(ctx context.Context, id string) (*models.Bucket, error)
	CreateBucket(ctx context.Context, spec models.BucketSpec) (*models.Bucket, error)
	UpdateBucket(ctx context.Context, id string, patch models.BucketPatch) (*models.Bucket, error)
	ListIdeasByPlan(ctx context.Context, planID string) ([]models.Idea, error)
}

// Classifier is the classification surface the API drives.
type Classifier interface {
	SubmitIdea(ctx context.Context, planID, title, description string) (*models.Idea, *models.ClassificationResult, error)
	RefreshBucketEmbedding(ctx context.Context, bucket *models.Bucket)
	InvalidatePlan(planID string)
}

// UsageSource exposes the accounting counters.
type UsageSource interface {
	Snapshot() accounting.Snapshot
}

// Service is the HTTP API service.
type Service struct {
	version    string
	storage    Storage
	classifier Classifier
	usage      UsageSource
	router     chi.Router
	startTime  time.Time
}

// NewService creates the API service and mounts its routes.
func NewService(version string, storage Storage, classifier Classifier, usage UsageSource) *Service {
	s := &Service{
		version:    version,
		storage:    storage,
		classifier: classifier,
		usage:      usage,
		router:     chi.NewRouter(),
		startTime:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// Router returns the HTTP handler.
func (s *Service) Router() http.Handler {
	return s.router
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/usage", s.handleUsage)

		r.Post("/plans", s.handleCreatePlan)
		r.Route("/plans/{planID}", func(r chi.Router) {
			r.Get("/", s.handleGetPlan)
			r.Get("/buckets", s.handleListBuckets)
			r.Post("/buckets", s.handleCreateBucket)
			r.Get("/ideas", s.handleListIdeas)
			r.Post("/ideas", s.handleCreateIdea)
		})

		r.Patch("/buckets/{bucketID}", s.handleUpdateBucket)
	})
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Service) handleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.usage.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
