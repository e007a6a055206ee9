// Package jobrequest manages a job request from application to completion.
//
// A request's status is an append-only log of RequestState rows. The current
// state is always the newest entry; once a completed entry exists nothing may
// follow it, and the transition that appends it also releases the wage from
// escrow in the same transaction.
package jobrequest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/db"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/observability"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/escrow"
)

const defaultAttempts = 3

type Service struct {
	DB     *gorm.DB
	Escrow *escrow.Service
	Events realtime.Publisher
	Tel    *observability.Telemetry
	Log    *slog.Logger

	// MaxAttempts bounds whole-operation retries of Transition after a
	// storage serialization failure.
	MaxAttempts int
}

func NewService(gdb *gorm.DB, esc *escrow.Service, events realtime.Publisher, log *slog.Logger) *Service {
	if events == nil {
		events = realtime.Nop
	}
	return &Service{
		DB:          gdb,
		Escrow:      esc,
		Events:      events,
		Tel:         observability.Global(),
		Log:         log,
		MaxAttempts: defaultAttempts,
	}
}

// Create applies clientID to adJobID. The request and its pending state are
// written together.
func (s *Service) Create(ctx context.Context, clientID, adJobID uuid.UUID) (*models.JobRequest, error) {
	ctx, span := s.Tel.Start(ctx, "jobrequest.create",
		attribute.String(observability.AttrClientID, clientID.String()),
		attribute.String(observability.AttrAdJobID, adJobID.String()))

	var (
		req     models.JobRequest
		ownerID uuid.UUID
	)
	err := s.DB.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		var job models.AdJob
		if err := tx.Preload("Ad").First(&job, "id = ?", adJobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Newf(apperr.KindNotFound, "ad job %s not found", adJobID)
			}
			return err
		}
		if job.Ad != nil {
			ownerID = job.Ad.ClientID
		}

		var existing int64
		if err := tx.Model(&models.JobRequest{}).
			Where("client_id = ? AND ad_job_id = ?", clientID, adJobID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.New(apperr.KindDuplicateRequest, "already applied to this job")
		}

		req = models.JobRequest{ClientID: clientID, AdJobID: adJobID, CreatedAt: time.Now().UTC()}
		if err := tx.Create(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Wrap(apperr.KindDuplicateRequest, "already applied to this job", err)
			}
			return err
		}

		state := models.RequestState{
			JobRequestID:      req.ID,
			RequestStateRefID: models.RequestStatePending,
			CreatedAt:         req.CreatedAt,
		}
		if err := tx.Create(&state).Error; err != nil {
			return err
		}
		var ref models.RequestStateRef
		if err := tx.First(&ref, state.RequestStateRefID).Error; err != nil {
			return err
		}
		state.Ref = &ref
		req.States = []models.RequestState{state}
		req.Current = &req.States[0]
		return nil
	})
	err = db.Classify(err)
	observability.End(span, err)
	if err != nil {
		return nil, err
	}

	s.Tel.TransitionRecorded(ctx, models.RequestStatePending)
	s.Log.Info("job request created", "job_request_id", req.ID, "client_id", clientID, "ad_job_id", adJobID)
	s.Events.Publish(ctx, realtime.Event{
		Type:         realtime.EventRequestCreated,
		JobRequestID: req.ID,
		Data:         req,
	}, parties(clientID, ownerID)...)
	return &req, nil
}

type transitionResult struct {
	state    models.RequestState
	payment  *models.Payment
	ownerID  uuid.UUID
	clientID uuid.UUID
}

// Transition appends refID to the request's state log. Any ref is accepted
// unless the request is already completed. Moving to completed settles the
// escrow; if settlement fails nothing is written.
func (s *Service) Transition(ctx context.Context, jobRequestID uuid.UUID, refID uint) (*models.RequestState, error) {
	ctx, span := s.Tel.Start(ctx, "jobrequest.transition",
		attribute.String(observability.AttrJobRequestID, jobRequestID.String()),
		attribute.Int(observability.AttrStateRefID, int(refID)))

	attempts := s.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		res *transitionResult
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err = s.transition(context.WithoutCancel(ctx), jobRequestID, refID)
		err = db.Classify(err)
		if apperr.KindOf(err) != apperr.KindConflict || attempt == attempts {
			break
		}
		s.Log.Warn("transition conflict, retrying", "job_request_id", jobRequestID, "attempt", attempt, "err", err)
	}
	observability.End(span, err)
	if err != nil {
		return nil, err
	}

	s.Tel.TransitionRecorded(ctx, refID)
	recipients := parties(res.clientID, res.ownerID)
	s.Events.Publish(ctx, realtime.Event{
		Type:         realtime.EventRequestStateChanged,
		JobRequestID: jobRequestID,
		Data:         res.state,
	}, recipients...)

	if res.payment != nil {
		s.Tel.PaymentSettled(ctx)
		s.Log.Info("escrow released",
			"job_request_id", jobRequestID,
			"payment_id", res.payment.ID,
			"amount", res.payment.Amount.String())
		s.Events.Publish(ctx, realtime.Event{
			Type:         realtime.EventPaymentSettled,
			JobRequestID: jobRequestID,
			Data:         res.payment,
		}, recipients...)
	}
	return &res.state, nil
}

func (s *Service) transition(ctx context.Context, jobRequestID uuid.UUID, refID uint) (*transitionResult, error) {
	var res transitionResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the request row; concurrent transitions on it queue here
		var req models.JobRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", jobRequestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Newf(apperr.KindNotFound, "job request %s not found", jobRequestID)
			}
			return err
		}
		res.clientID = req.ClientID

		var ref models.RequestStateRef
		if err := tx.First(&ref, refID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Newf(apperr.KindInvalidInput, "unknown request state %d", refID)
			}
			return err
		}

		// 2. Terminal check against the newest entry
		current, err := latestState(tx, req.ID)
		if err != nil {
			return err
		}
		if current.IsTerminal() {
			return apperr.New(apperr.KindInvalidTransition, "job request is already completed")
		}

		// 3. Append
		now := time.Now().UTC()
		if now.Before(current.CreatedAt) {
			now = current.CreatedAt
		}
		res.state = models.RequestState{
			JobRequestID:      req.ID,
			RequestStateRefID: ref.ID,
			CreatedAt:         now,
		}
		if err := tx.Create(&res.state).Error; err != nil {
			return err
		}
		res.state.Ref = &ref

		var job models.AdJob
		if err := tx.Preload("Ad").First(&job, "id = ?", req.AdJobID).Error; err != nil {
			return err
		}
		if job.Ad != nil {
			res.ownerID = job.Ad.ClientID
		}

		// 4. Completion releases the escrow in the same transaction
		if ref.IsTerminal() {
			pay, err := s.Escrow.Settle(tx, &req, res.state.ID)
			if err != nil {
				return err
			}
			res.payment = pay
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func latestState(tx *gorm.DB, jobRequestID uuid.UUID) (*models.RequestState, error) {
	var st models.RequestState
	err := tx.Where("job_request_id = ?", jobRequestID).
		Order("created_at DESC").
		Order("id DESC").
		First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.KindInternal, "job request %s has no states", jobRequestID)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Cancel deletes a request and its whole state log. Only the requester may
// cancel, and only before completion.
func (s *Service) Cancel(ctx context.Context, jobRequestID, clientID uuid.UUID) error {
	ctx, span := s.Tel.Start(ctx, "jobrequest.cancel",
		attribute.String(observability.AttrJobRequestID, jobRequestID.String()),
		attribute.String(observability.AttrClientID, clientID.String()))

	var ownerID uuid.UUID
	err := s.DB.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		var req models.JobRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", jobRequestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Newf(apperr.KindNotFound, "job request %s not found", jobRequestID)
			}
			return err
		}
		if req.ClientID != clientID {
			return apperr.New(apperr.KindForbidden, "only the requester can cancel this job request")
		}

		current, err := latestState(tx, req.ID)
		if err != nil {
			return err
		}
		if current.IsTerminal() {
			return apperr.New(apperr.KindInvalidOperation, "completed job requests cannot be cancelled")
		}

		var job models.AdJob
		if err := tx.Preload("Ad").First(&job, "id = ?", req.AdJobID).Error; err == nil && job.Ad != nil {
			ownerID = job.Ad.ClientID
		}

		if err := tx.Where("job_request_id = ?", req.ID).Delete(&models.RequestState{}).Error; err != nil {
			return fmt.Errorf("delete states: %w", err)
		}
		if err := tx.Delete(&req).Error; err != nil {
			return fmt.Errorf("delete job request: %w", err)
		}
		return nil
	})
	err = db.Classify(err)
	observability.End(span, err)
	if err != nil {
		return err
	}

	s.Log.Info("job request cancelled", "job_request_id", jobRequestID, "client_id", clientID)
	s.Events.Publish(ctx, realtime.Event{
		Type:         realtime.EventRequestCancelled,
		JobRequestID: jobRequestID,
	}, parties(clientID, ownerID)...)
	return nil
}

// Get returns a request with its full history, current state, job, ad and payment.
func (s *Service) Get(ctx context.Context, jobRequestID uuid.UUID) (*models.JobRequest, error) {
	var req models.JobRequest
	err := s.withHistory(s.DB.WithContext(ctx)).
		Preload("AdJob.Ad").
		Preload("Payment").
		First(&req, "id = ?", jobRequestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.KindNotFound, "job request %s not found", jobRequestID)
	}
	if err != nil {
		return nil, fmt.Errorf("load job request: %w", err)
	}
	req.Current = models.LatestState(req.States)
	return &req, nil
}

// ListByClient returns the requests clientID has made.
func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.JobRequest, error) {
	var out []models.JobRequest
	err := s.withHistory(s.DB.WithContext(ctx)).
		Preload("AdJob").
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list job requests: %w", err)
	}
	return resolveCurrent(out), nil
}

// ListByAdOwner returns the requests made on any job of ownerID's ads.
func (s *Service) ListByAdOwner(ctx context.Context, ownerID uuid.UUID) ([]models.JobRequest, error) {
	var out []models.JobRequest
	err := s.withHistory(s.DB.WithContext(ctx)).
		Preload("AdJob").
		Preload("Client").
		Joins("JOIN ad_jobs ON ad_jobs.id = job_requests.ad_job_id").
		Joins("JOIN ads ON ads.id = ad_jobs.ad_id").
		Where("ads.client_id = ?", ownerID).
		Order("job_requests.created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list incoming job requests: %w", err)
	}
	return resolveCurrent(out), nil
}

func (s *Service) withHistory(q *gorm.DB) *gorm.DB {
	return q.Preload("States", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC").Order("id ASC")
	}).Preload("States.Ref")
}

func resolveCurrent(reqs []models.JobRequest) []models.JobRequest {
	for i := range reqs {
		reqs[i].Current = models.LatestState(reqs[i].States)
	}
	return reqs
}

func parties(clientID, ownerID uuid.UUID) []uuid.UUID {
	if ownerID == uuid.Nil || ownerID == clientID {
		return []uuid.UUID{clientID}
	}
	return []uuid.UUID{clientID, ownerID}
}
