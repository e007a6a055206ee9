package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Ad struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"client_id"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	TotalWage   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_wage"` // sum of job total wages
	AdStateID   uint            `gorm:"not null;default:1" json:"ad_state_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client     *Client      `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Jobs       []AdJob      `gorm:"foreignKey:AdID" json:"jobs,omitempty"`
	Categories []AdCategory `gorm:"foreignKey:AdID" json:"categories,omitempty"`
}

func (a *Ad) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// AdCategory tags an ad with a category.
type AdCategory struct {
	AdID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"ad_id"`
	CategoryID uint      `gorm:"primaryKey" json:"category_id"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// AdJob is one hireable position under an ad.
type AdJob struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AdID               uuid.UUID       `gorm:"type:uuid;index;not null" json:"ad_id"`
	Title              string          `gorm:"not null" json:"title"`
	Description        string          `gorm:"type:text" json:"description"`
	Vacancy            int             `gorm:"not null;default:1" json:"vacancy"`
	Wage               decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"wage"`       // per hire
	TotalWage          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_wage"` // wage x vacancy
	RequiresExperience bool            `gorm:"default:false" json:"requires_experience"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	JobStateID         uint            `gorm:"not null;default:1" json:"job_state_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Ad      *Ad      `gorm:"foreignKey:AdID" json:"ad,omitempty"`
	Escrows []Escrow `gorm:"foreignKey:AdJobID" json:"escrows,omitempty"`
}

func (j *AdJob) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}

// JobTotal is the only formula used for both AdJob.TotalWage and Escrow.TotalAmount.
func JobTotal(wage decimal.Decimal, vacancy int) decimal.Decimal {
	return wage.Mul(decimal.NewFromInt(int64(vacancy)))
}
