package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

// JobRating is unique per (job request, rating type, rating category);
// resubmitting the same triple overwrites the row.
type JobRating struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobRequestID     uuid.UUID `gorm:"type:uuid;not null;index:idx_job_rating_triple,unique" json:"job_request_id"`
	RatingTypeID     uint      `gorm:"not null;index:idx_job_rating_triple,unique" json:"rating_type_id"`
	RatingCategoryID uint      `gorm:"not null;index:idx_job_rating_triple,unique" json:"rating_category_id"`

	Rating      int    `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Description string `gorm:"type:text" json:"description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RatingType     *RatingType     `gorm:"foreignKey:RatingTypeID" json:"rating_type,omitempty"`
	RatingCategory *RatingCategory `gorm:"foreignKey:RatingCategoryID" json:"rating_category,omitempty"`
}

func (r *JobRating) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
