package web

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/sortdeck/sortdeck/internal/store"
	"github.com/sortdeck/sortdeck/pkg/models"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type planRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Service) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	plan, err := s.storage.CreatePlan(r.Context(), req.Title, strings.TrimSpace(req.Description))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create plan")
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Service) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.storage.GetPlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "plan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load plan")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type ideaRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ideaResponse pairs the created idea with its classification outcome.
// Classification is null when the idea is awaiting emergent bucket creation.
type ideaResponse struct {
	Idea           *models.Idea                 `json:"idea"`
	Classification *models.ClassificationResult `json:"classification"`
}

func (s *Service) handleCreateIdea(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	if _, err := s.storage.GetPlan(r.Context(), planID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "plan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load plan")
		return
	}

	var req ideaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	idea, result, err := s.classifier.SubmitIdea(r.Context(), planID, req.Title, strings.TrimSpace(req.Description))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create idea")
		return
	}
	writeJSON(w, http.StatusCreated, ideaResponse{Idea: idea, Classification: result})
}

func (s *Service) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	ideas, err := s.storage.ListIdeasByPlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list ideas")
		return
	}
	if ideas == nil {
		ideas = []models.Idea{}
	}
	writeJSON(w, http.StatusOK, ideas)
}

type bucketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AccentColor string `json:"accent_color"`
}

func (s *Service) handleCreateBucket(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	if _, err := s.storage.GetPlan(r.Context(), planID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "plan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load plan")
		return
	}

	var req bucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.AccentColor != "" && !hexColor.MatchString(req.AccentColor) {
		writeError(w, http.StatusBadRequest, "accent_color must be #RRGGBB")
		return
	}

	bucket, err := s.storage.CreateBucket(r.Context(), models.BucketSpec{
		PlanID:      planID,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		AccentColor: req.AccentColor,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create bucket")
		return
	}

	// The new bucket has no embedding yet; the next classification computes
	// one during cache repopulation.
	s.classifier.InvalidatePlan(planID)
	writeJSON(w, http.StatusCreated, bucket)
}

func (s *Service) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.storage.ListBucketsByPlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list buckets")
		return
	}
	if buckets == nil {
		buckets = []models.Bucket{}
	}
	writeJSON(w, http.StatusOK, buckets)
}

type bucketPatchRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	AccentColor  *string `json:"accent_color"`
	DisplayOrder *int    `json:"display_order"`
}

func (s *Service) handleUpdateBucket(w http.ResponseWriter, r *http.Request) {
	bucketID := chi.URLParam(r, "bucketID")

	var req bucketPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title cannot be empty")
		return
	}
	if req.AccentColor != nil && !hexColor.MatchString(*req.AccentColor) {
		writeError(w, http.StatusBadRequest, "accent_color must be #RRGGBB")
		return
	}

	bucket, err := s.storage.UpdateBucket(r.Context(), bucketID, models.BucketPatch{
		Title:        req.Title,
		Description:  req.Description,
		AccentColor:  req.AccentColor,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bucket not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update bucket")
		return
	}

	// A text change moves the bucket's meaning; the stored embedding must
	// follow before the next classification runs.
	if req.Title != nil || req.Description != nil {
		s.classifier.RefreshBucketEmbedding(r.Context(), bucket)
	}
	writeJSON(w, http.StatusOK, bucket)
}
