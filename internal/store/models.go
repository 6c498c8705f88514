package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sortdeck/sortdeck/pkg/models"
)

// planRow is the plans table.
type planRow struct {
	ID             string `gorm:"primaryKey"`
	Title          string `gorm:"not null"`
	Description    string
	CreatedAtEpoch int64 `gorm:"not null"`
}

func (planRow) TableName() string { return "plans" }

// BeforeCreate assigns the ID and timestamp.
func (p *planRow) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAtEpoch == 0 {
		p.CreatedAtEpoch = time.Now().UnixMilli()
	}
	return nil
}

// bucketRow is the buckets table. The embedding persists as a JSON TEXT
// column and must track the current title+description.
type bucketRow struct {
	ID             string `gorm:"primaryKey"`
	PlanID         string `gorm:"index;not null"`
	Title          string `gorm:"not null"`
	Description    string
	AccentColor    string
	DisplayOrder   int           `gorm:"index:idx_buckets_plan_order,priority:2"`
	Embedding      models.Vector `gorm:"type:text"`
	CreatedAtEpoch int64         `gorm:"not null"`
}

func (bucketRow) TableName() string { return "buckets" }

// BeforeCreate assigns the ID and timestamp.
func (b *bucketRow) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAtEpoch == 0 {
		b.CreatedAtEpoch = time.Now().UnixMilli()
	}
	return nil
}

// ideaRow is the ideas table. An empty BucketID means unbucketed.
type ideaRow struct {
	ID             string `gorm:"primaryKey"`
	PlanID         string `gorm:"index;not null"`
	BucketID       string `gorm:"index;default:''"`
	Title          string `gorm:"not null"`
	Description    string
	Confidence     int           `gorm:"default:0"`
	Embedding      models.Vector `gorm:"type:text"`
	CreatedAtEpoch int64         `gorm:"index:idx_ideas_created,sort:desc;not null"`
}

func (ideaRow) TableName() string { return "ideas" }

// BeforeCreate assigns the ID and timestamp.
func (i *ideaRow) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.CreatedAtEpoch == 0 {
		i.CreatedAtEpoch = time.Now().UnixMilli()
	}
	return nil
}

func (p *planRow) toModel() *models.Plan {
	return &models.Plan{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		CreatedAtEpoch: p.CreatedAtEpoch,
	}
}

func (b *bucketRow) toModel() *models.Bucket {
	return &models.Bucket{
		ID:             b.ID,
		PlanID:         b.PlanID,
		Title:          b.Title,
		Description:    b.Description,
		AccentColor:    b.AccentColor,
		DisplayOrder:   b.DisplayOrder,
		Embedding:      b.Embedding,
		CreatedAtEpoch: b.CreatedAtEpoch,
	}
}

func (i *ideaRow) toModel() *models.Idea {
	return &models.Idea{
		ID:             i.ID,
		PlanID:         i.PlanID,
		BucketID:       i.BucketID,
		Title:          i.Title,
		Description:    i.Description,
		Confidence:     i.Confidence,
		Embedding:      i.Embedding,
		CreatedAtEpoch: i.CreatedAtEpoch,
	}
}
