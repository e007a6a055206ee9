// Package listing creates ads with their jobs and places each job's escrow.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/db"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/escrow"
)

type Service struct {
	DB  *gorm.DB
	Log *slog.Logger
}

func NewService(gdb *gorm.DB, log *slog.Logger) *Service {
	return &Service{DB: gdb, Log: log}
}

type JobInput struct {
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Vacancy            int             `json:"vacancy"`
	Wage               decimal.Decimal `json:"wage"`
	RequiresExperience bool            `json:"requires_experience"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
}

type AdInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CategoryIDs []uint     `json:"category_ids"`
	Jobs        []JobInput `json:"jobs"`
}

func (in JobInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.New(apperr.KindInvalidInput, "job title is required")
	}
	if !in.Wage.IsPositive() {
		return apperr.New(apperr.KindInvalidInput, "wage must be greater than zero")
	}
	if in.Vacancy < 1 {
		return apperr.New(apperr.KindInvalidInput, "vacancy must be at least 1")
	}
	if !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return apperr.New(apperr.KindInvalidInput, "end date is before start date")
	}
	return nil
}

// CreateAd writes the ad, its jobs, one held escrow per job and the category
// links together. Totals are always wage x vacancy.
func (s *Service) CreateAd(ctx context.Context, ownerID uuid.UUID, in AdInput) (*models.Ad, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "title is required")
	}
	if len(in.Jobs) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "an ad needs at least one job")
	}
	for i, j := range in.Jobs {
		if err := j.validate(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
	}

	ad := models.Ad{
		ClientID:    ownerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		AdStateID:   models.AdStateOpen,
		TotalWage:   decimal.Zero,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Client{}).Where("id = ?", ownerID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return apperr.Newf(apperr.KindNotFound, "client %s not found", ownerID)
		}

		jobs := make([]models.AdJob, 0, len(in.Jobs))
		for _, j := range in.Jobs {
			total := models.JobTotal(j.Wage, j.Vacancy)
			ad.TotalWage = ad.TotalWage.Add(total)
			jobs = append(jobs, models.AdJob{
				Title:              strings.TrimSpace(j.Title),
				Description:        j.Description,
				Vacancy:            j.Vacancy,
				Wage:               j.Wage,
				TotalWage:          total,
				RequiresExperience: j.RequiresExperience,
				StartDate:          j.StartDate,
				EndDate:            j.EndDate,
				JobStateID:         models.AdStateOpen,
			})
		}
		if err := tx.Create(&ad).Error; err != nil {
			return fmt.Errorf("create ad: %w", err)
		}

		for i := range jobs {
			jobs[i].AdID = ad.ID
			if err := tx.Create(&jobs[i]).Error; err != nil {
				return fmt.Errorf("create ad job: %w", err)
			}
			esc := models.Escrow{
				AdJobID:     jobs[i].ID,
				TotalAmount: jobs[i].TotalWage,
				State:       models.EscrowStateHeld,
			}
			if err := tx.Create(&esc).Error; err != nil {
				return fmt.Errorf("place escrow: %w", err)
			}
			jobs[i].Escrows = []models.Escrow{esc}
		}
		ad.Jobs = jobs

		return setCategories(tx, ad.ID, in.CategoryIDs)
	})
	if err = db.Classify(err); err != nil {
		return nil, err
	}

	s.Log.Info("ad created", "ad_id", ad.ID, "client_id", ownerID, "jobs", len(ad.Jobs), "total_wage", ad.TotalWage.String())
	return s.GetAd(ctx, ad.ID)
}

func setCategories(tx *gorm.DB, adID uuid.UUID, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var known int64
	if err := tx.Model(&models.Category{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
		return err
	}
	links := make([]models.AdCategory, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			links = append(links, models.AdCategory{AdID: adID, CategoryID: id})
		}
	}
	if int(known) != len(links) {
		return apperr.New(apperr.KindInvalidInput, "unknown category")
	}
	return tx.Create(&links).Error
}

// UpdateAdJob edits a job owned by ownerID and recomputes its total, its
// escrow amount and state, and the ad total. The new total may not drop
// below what the escrow has already paid out.
func (s *Service) UpdateAdJob(ctx context.Context, ownerID, jobID uuid.UUID, in JobInput) (*models.AdJob, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var job models.AdJob
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&job, "id = ?", jobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Newf(apperr.KindNotFound, "ad job %s not found", jobID)
			}
			return err
		}
		var ad models.Ad
		if err := tx.First(&ad, "id = ?", job.AdID).Error; err != nil {
			return err
		}
		if ad.ClientID != ownerID {
			return apperr.New(apperr.KindForbidden, "only the ad owner can edit its jobs")
		}

		total := models.JobTotal(in.Wage, in.Vacancy)
		if err := tx.Model(&job).Updates(map[string]any{
			"title":               strings.TrimSpace(in.Title),
			"description":         in.Description,
			"vacancy":             in.Vacancy,
			"wage":                in.Wage,
			"total_wage":          total,
			"requires_experience": in.RequiresExperience,
			"start_date":          in.StartDate,
			"end_date":            in.EndDate,
		}).Error; err != nil {
			return fmt.Errorf("update ad job: %w", err)
		}

		var escrows []models.Escrow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("ad_job_id = ?", job.ID).
			Find(&escrows).Error; err != nil {
			return fmt.Errorf("lock escrows: %w", err)
		}
		for _, esc := range escrows {
			released, err := escrow.ReleasedTotal(tx, esc.ID)
			if err != nil {
				return err
			}
			if total.LessThan(released) {
				return apperr.Newf(apperr.KindInvalidInput,
					"job total %s is below the %s already released", total, released)
			}
			if err := tx.Model(&esc).Updates(map[string]any{
				"total_amount": total,
				"state":        escrow.ReleaseState(total, released),
			}).Error; err != nil {
				return fmt.Errorf("update escrow: %w", err)
			}
		}

		var totals []decimal.Decimal
		if err := tx.Model(&models.AdJob{}).Where("ad_id = ?", ad.ID).Pluck("total_wage", &totals).Error; err != nil {
			return err
		}
		return tx.Model(&ad).Update("total_wage", decimal.Sum(decimal.Zero, totals...)).Error
	})
	if err = db.Classify(err); err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Preload("Escrows").First(&job, "id = ?", jobID).Error; err != nil {
		return nil, fmt.Errorf("reload ad job: %w", err)
	}
	return &job, nil
}

func (s *Service) GetAd(ctx context.Context, id uuid.UUID) (*models.Ad, error) {
	var ad models.Ad
	err := s.DB.WithContext(ctx).
		Preload("Jobs", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC") }).
		Preload("Jobs.Escrows").
		Preload("Categories.Category").
		First(&ad, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.KindNotFound, "ad %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load ad: %w", err)
	}
	return &ad, nil
}
