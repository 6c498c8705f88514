package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sortdeck/sortdeck/pkg/models"
)

// ListBucketsByPlan returns a plan's buckets ordered by display order.
func (s *Store) ListBucketsByPlan(ctx context.Context, planID string) ([]models.Bucket, error) {
	var rows []bucketRow
	err := s.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("display_order ASC, created_at_epoch ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	buckets := make([]models.Bucket, len(rows))
	for i := range rows {
		buckets[i] = *rows[i].toModel()
	}
	return buckets, nil
}

// GetBucket returns a bucket by ID.
func (s *Store) GetBucket(ctx context.Context, id string) (*models.Bucket, error) {
	var row bucketRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bucket: %w", err)
	}
	return row.toModel(), nil
}

// CreateBucket creates a bucket. A zero DisplayOrder is assigned to the end
// of the plan's current ordering.
func (s *Store) CreateBucket(ctx context.Context, spec models.BucketSpec) (*models.Bucket, error) {
	row := &bucketRow{
		PlanID:       spec.PlanID,
		Title:        spec.Title,
		Description:  spec.Description,
		AccentColor:  spec.AccentColor,
		DisplayOrder: spec.DisplayOrder,
		Embedding:    spec.Embedding,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if row.DisplayOrder == 0 {
			var max int
			if err := tx.Model(&bucketRow{}).
				Where("plan_id = ?", spec.PlanID).
				Select("COALESCE(MAX(display_order), 0)").
				Scan(&max).Error; err != nil {
				return err
			}
			row.DisplayOrder = max + 1
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return row.toModel(), nil
}

// UpdateBucket applies a partial update and returns the updated bucket.
func (s *Store) UpdateBucket(ctx context.Context, id string, patch models.BucketPatch) (*models.Bucket, error) {
	updates := make(map[string]any)
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.AccentColor != nil {
		updates["accent_color"] = *patch.AccentColor
	}
	if patch.DisplayOrder != nil {
		updates["display_order"] = *patch.DisplayOrder
	}
	if patch.Embedding != nil {
		updates["embedding"] = patch.Embedding
	} else if patch.ClearEmbedding {
		updates["embedding"] = nil
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&bucketRow{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("update bucket: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetBucket(ctx, id)
}
