package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EscrowStateHeld              = "held"
	EscrowStatePartiallyReleased = "partially_released"
	EscrowStateReleased          = "released"
)

// Escrow holds the funds placed for an AdJob when it was created.
type Escrow struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AdJobID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"ad_job_id"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	State       string          `gorm:"type:varchar(30);not null;default:'held'" json:"state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Escrow) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}

// Payment is the immutable release of one hire's wage from an escrow.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EscrowID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"escrow_id"`
	JobRequestID  uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"job_request_id"`
	JobOrdererID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"job_orderer_id"` // payer: the ad owner
	ContractorID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"contractor_id"`  // payee: the requester
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	PaymentTypeID uint            `gorm:"not null" json:"payment_type_id"`
	Details       datatypes.JSON  `json:"details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
