package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// Client is a marketplace participant. The same client can post ads and
// request jobs on other clients' ads.
type Client struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone string    `gorm:"type:varchar(30)" json:"phone"`

	Role     Role `gorm:"type:varchar(20);not null;default:'client';index" json:"role"`
	IsActive bool `gorm:"default:true" json:"is_active"`

	// AvgRating is a cache rebuilt from job_ratings, never written directly.
	AvgRating float64 `gorm:"not null;default:0" json:"avg_rating"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
