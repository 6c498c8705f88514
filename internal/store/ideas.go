package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sortdeck/sortdeck/pkg/models"
)

// CreateIdea creates an unbucketed idea on a plan.
func (s *Store) CreateIdea(ctx context.Context, planID, title, description string) (*models.Idea, error) {
	row := &ideaRow{PlanID: planID, Title: title, Description: description}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("create idea: %w", err)
	}
	return row.toModel(), nil
}

// GetIdea returns an idea by ID.
func (s *Store) GetIdea(ctx context.Context, id string) (*models.Idea, error) {
	var row ideaRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get idea: %w", err)
	}
	return row.toModel(), nil
}

// ListIdeasByPlan returns a plan's ideas, oldest first.
func (s *Store) ListIdeasByPlan(ctx context.Context, planID string) ([]models.Idea, error) {
	return s.listIdeas(ctx, s.db.WithContext(ctx).Where("plan_id = ?", planID))
}

// ListUnbucketedIdeas returns a plan's ideas with no bucket assigned,
// oldest first. The emergent-creation path re-reads this after its debounce
// window to absorb near-simultaneous submissions.
func (s *Store) ListUnbucketedIdeas(ctx context.Context, planID string) ([]models.Idea, error) {
	return s.listIdeas(ctx, s.db.WithContext(ctx).Where("plan_id = ? AND bucket_id = ''", planID))
}

func (s *Store) listIdeas(ctx context.Context, query *gorm.DB) ([]models.Idea, error) {
	var rows []ideaRow
	if err := query.Order("created_at_epoch ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	ideas := make([]models.Idea, len(rows))
	for i := range rows {
		ideas[i] = *rows[i].toModel()
	}
	return ideas, nil
}

// UpdateIdea applies a partial update and returns the updated idea.
func (s *Store) UpdateIdea(ctx context.Context, id string, patch models.IdeaPatch) (*models.Idea, error) {
	updates := make(map[string]any)
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.BucketID != nil {
		updates["bucket_id"] = *patch.BucketID
	}
	if patch.Confidence != nil {
		updates["confidence"] = *patch.Confidence
	}
	if patch.Embedding != nil {
		updates["embedding"] = patch.Embedding
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&ideaRow{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("update idea: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetIdea(ctx, id)
}
