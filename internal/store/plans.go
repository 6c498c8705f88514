package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sortdeck/sortdeck/pkg/models"
)

// CreatePlan creates a new plan.
func (s *Store) CreatePlan(ctx context.Context, title, description string) (*models.Plan, error) {
	row := &planRow{Title: title, Description: description}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return row.toModel(), nil
}

// GetPlan returns a plan by ID.
func (s *Store) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	var row planRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return row.toModel(), nil
}
