package escrow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
)

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

type paymentDetails struct {
	EscrowTotal    decimal.Decimal `json:"escrowTotal"`
	Vacancy        int             `json:"vacancy"`
	RequestStateID uint            `json:"requestStateId"`
}

// Settle releases one hire's wage from the job's escrow to the requester.
// It must run inside the transaction that appends the completed state. A
// payment that would draw the escrow past its total is rejected.
func (s *Service) Settle(tx *gorm.DB, req *models.JobRequest, stateID uint) (*models.Payment, error) {
	var job models.AdJob
	if err := tx.Preload("Ad").First(&job, "id = ?", req.AdJobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Newf(apperr.KindNotFound, "ad job %s not found", req.AdJobID)
		}
		return nil, fmt.Errorf("load ad job: %w", err)
	}
	if job.Ad == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "ad of job %s not found", job.ID)
	}

	// 1. Lock the escrow row
	var esc models.Escrow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ad_job_id = ?", job.ID).
		Order("created_at ASC").
		First(&esc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.KindNoEscrowFound, "ad job %s has no escrow", job.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock escrow: %w", err)
	}

	released, err := ReleasedTotal(tx, esc.ID)
	if err != nil {
		return nil, err
	}
	if released.Add(job.Wage).GreaterThan(esc.TotalAmount) {
		return nil, apperr.Newf(apperr.KindInvalidOperation,
			"escrow %s is exhausted: %s of %s released", esc.ID, released, esc.TotalAmount)
	}

	details, err := json.Marshal(paymentDetails{
		EscrowTotal:    esc.TotalAmount,
		Vacancy:        job.Vacancy,
		RequestStateID: stateID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payment details: %w", err)
	}

	// 2. Create the payment
	pay := models.Payment{
		EscrowID:      esc.ID,
		JobRequestID:  req.ID,
		JobOrdererID:  job.Ad.ClientID,
		ContractorID:  req.ClientID,
		Amount:        job.Wage,
		PaymentTypeID: models.PaymentTypeEscrowRelease,
		Details:       datatypes.JSON(details),
	}
	if err := tx.Create(&pay).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Wrap(apperr.KindInvalidTransition, "job request already paid", err)
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	// 3. Move the escrow state along
	state := ReleaseState(esc.TotalAmount, released.Add(pay.Amount))
	if state != esc.State {
		if err := tx.Model(&esc).Update("state", state).Error; err != nil {
			return nil, fmt.Errorf("update escrow state: %w", err)
		}
	}

	return &pay, nil
}

// ReleasedTotal sums the payments already drawn from an escrow.
func ReleasedTotal(tx *gorm.DB, escrowID uuid.UUID) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := tx.Model(&models.Payment{}).
		Where("escrow_id = ?", escrowID).
		Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, fmt.Errorf("sum released: %w", err)
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// ReleaseState maps the released sum against the escrow total.
func ReleaseState(total, released decimal.Decimal) string {
	switch {
	case released.IsZero() || released.IsNegative():
		return models.EscrowStateHeld
	case released.GreaterThanOrEqual(total):
		return models.EscrowStateReleased
	default:
		return models.EscrowStatePartiallyReleased
	}
}

// ListPayments returns payments where clientID paid or got paid, newest first.
func (s *Service) ListPayments(ctx context.Context, clientID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	err := s.DB.WithContext(ctx).
		Where("job_orderer_id = ? OR contractor_id = ?", clientID, clientID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

// PaymentFor returns the payment of a job request, or nil if it was never settled.
func (s *Service) PaymentFor(ctx context.Context, jobRequestID uuid.UUID) (*models.Payment, error) {
	var pay models.Payment
	err := s.DB.WithContext(ctx).Where("job_request_id = ?", jobRequestID).Limit(1).Find(&pay).Error
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if pay.ID == uuid.Nil {
		return nil, nil
	}
	return &pay, nil
}
