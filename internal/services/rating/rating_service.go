package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/db"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/observability"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/realtime"
)

type Service struct {
	DB     *gorm.DB
	Events realtime.Publisher
	Tel    *observability.Telemetry
	Log    *slog.Logger
}

func NewService(gdb *gorm.DB, events realtime.Publisher, log *slog.Logger) *Service {
	if events == nil {
		events = realtime.Nop
	}
	return &Service{DB: gdb, Events: events, Tel: observability.Global(), Log: log}
}

type SubmitInput struct {
	JobRequestID     uuid.UUID `json:"job_request_id"`
	RatingTypeID     uint      `json:"rating_type_id"`
	RatingCategoryID uint      `json:"rating_category_id"`
	Rating           int       `json:"rating"`
	Description      string    `json:"description"`
}

// Submit stores raterID's rating for one category of a completed job request.
// A second submission for the same request, type and category overwrites the
// first. Both parties' average ratings are rebuilt before commit.
func (s *Service) Submit(ctx context.Context, raterID uuid.UUID, in SubmitInput) (*models.JobRating, error) {
	if in.Rating < models.MinRating || in.Rating > models.MaxRating {
		return nil, apperr.Newf(apperr.KindInvalidInput, "rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	in.Description = strings.TrimSpace(in.Description)

	ctx, span := s.Tel.Start(ctx, "rating.submit",
		attribute.String(observability.AttrJobRequestID, in.JobRequestID.String()),
		attribute.String(observability.AttrClientID, raterID.String()))

	var (
		out                  models.JobRating
		ownerID, requesterID uuid.UUID
	)
	err := s.DB.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		var req models.JobRequest
		if err := tx.Preload("AdJob.Ad").First(&req, "id = ?", in.JobRequestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Newf(apperr.KindNotFound, "job request %s not found", in.JobRequestID)
			}
			return err
		}
		if req.AdJob == nil || req.AdJob.Ad == nil {
			return apperr.Newf(apperr.KindNotFound, "ad of job request %s not found", req.ID)
		}
		ownerID, requesterID = req.AdJob.Ad.ClientID, req.ClientID

		if err := exists(tx, &models.RatingType{}, in.RatingTypeID, "rating type"); err != nil {
			return err
		}
		if err := exists(tx, &models.RatingCategory{}, in.RatingCategoryID, "rating category"); err != nil {
			return err
		}

		switch in.RatingTypeID {
		case models.RatingTypeClientRatesContractor:
			if raterID != ownerID {
				return apperr.New(apperr.KindForbidden, "only the ad owner can rate the contractor")
			}
		case models.RatingTypeContractorRatesClient:
			if raterID != requesterID {
				return apperr.New(apperr.KindForbidden, "only the contractor can rate the client")
			}
		default:
			return apperr.Newf(apperr.KindInvalidInput, "rating type %d has no rater rule", in.RatingTypeID)
		}

		var current models.RequestState
		err := tx.Where("job_request_id = ?", req.ID).
			Order("created_at DESC").
			Order("id DESC").
			First(&current).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if !current.IsTerminal() {
			return apperr.New(apperr.KindInvalidOperation, "only completed job requests can be rated")
		}

		row := models.JobRating{
			JobRequestID:     req.ID,
			RatingTypeID:     in.RatingTypeID,
			RatingCategoryID: in.RatingCategoryID,
			Rating:           in.Rating,
			Description:      in.Description,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_request_id"}, {Name: "rating_type_id"}, {Name: "rating_category_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "description", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert rating: %w", err)
		}

		// the insert may have become an update; read back the stored row
		if err := tx.Preload("RatingType").Preload("RatingCategory").
			Where("job_request_id = ? AND rating_type_id = ? AND rating_category_id = ?",
				req.ID, in.RatingTypeID, in.RatingCategoryID).
			First(&out).Error; err != nil {
			return err
		}

		for _, id := range distinct(ownerID, requesterID) {
			if _, err := recompute(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	err = db.Classify(err)
	observability.End(span, err)
	if err != nil {
		return nil, err
	}

	s.Tel.RatingSubmitted(ctx, in.RatingTypeID)
	s.Log.Info("rating submitted",
		"job_request_id", in.JobRequestID,
		"rating_type_id", in.RatingTypeID,
		"rating_category_id", in.RatingCategoryID,
		"rating", in.Rating)
	s.Events.Publish(ctx, realtime.Event{
		Type:         realtime.EventRatingSubmitted,
		JobRequestID: in.JobRequestID,
		Data:         out,
	}, distinct(requesterID, ownerID)...)
	return &out, nil
}

// RecomputeAvgRating rebuilds clientID's cached average from job_ratings.
func (s *Service) RecomputeAvgRating(ctx context.Context, clientID uuid.UUID) (float64, error) {
	var avg float64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		avg, err = recompute(tx, clientID)
		return err
	})
	return avg, db.Classify(err)
}

// avgRatingQuery averages every rating on a request where the client was the
// requester or owns the ad. It does not tell ratings given from ratings
// received; both count.
const avgRatingQuery = `
SELECT AVG(r.rating)
FROM job_ratings r
JOIN job_requests q ON q.id = r.job_request_id
JOIN ad_jobs j ON j.id = q.ad_job_id
JOIN ads a ON a.id = j.ad_id
WHERE q.client_id = ? OR a.client_id = ?`

func recompute(tx *gorm.DB, clientID uuid.UUID) (float64, error) {
	var avg sql.NullFloat64
	if err := tx.Raw(avgRatingQuery, clientID, clientID).Row().Scan(&avg); err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}

	res := tx.Model(&models.Client{}).Where("id = ?", clientID).Update("avg_rating", avg.Float64)
	if res.Error != nil {
		return 0, fmt.Errorf("update avg rating: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperr.Newf(apperr.KindNotFound, "client %s not found", clientID)
	}
	return avg.Float64, nil
}

// ListRatings returns every rating of a job request.
func (s *Service) ListRatings(ctx context.Context, jobRequestID uuid.UUID) ([]models.JobRating, error) {
	var out []models.JobRating
	err := s.DB.WithContext(ctx).
		Preload("RatingType").
		Preload("RatingCategory").
		Where("job_request_id = ?", jobRequestID).
		Order("rating_type_id, rating_category_id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return out, nil
}

func exists(tx *gorm.DB, model any, id uint, what string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.Newf(apperr.KindInvalidInput, "unknown %s %d", what, id)
	}
	return nil
}

func distinct(a, b uuid.UUID) []uuid.UUID {
	if a == b {
		return []uuid.UUID{a}
	}
	return []uuid.UUID{a, b}
}
