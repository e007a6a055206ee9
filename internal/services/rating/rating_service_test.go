package rating_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/rating"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/testutil"
)

func newService(t *testing.T) (*rating.Service, *gorm.DB, *realtime.Recorder) {
	t.Helper()
	gdb := testutil.NewDB(t)
	rec := &realtime.Recorder{}
	return rating.NewService(gdb, rec, slog.New(slog.NewTextHandler(io.Discard, nil))), gdb, rec
}

// request inserts a job request whose log ends in last.
func request(t *testing.T, gdb *gorm.DB, clientID, adJobID uuid.UUID, last uint) models.JobRequest {
	t.Helper()
	t0 := time.Now().UTC()
	req := models.JobRequest{ClientID: clientID, AdJobID: adJobID, CreatedAt: t0}
	require.NoError(t, gdb.Create(&req).Error)
	require.NoError(t, gdb.Create(&models.RequestState{JobRequestID: req.ID, RequestStateRefID: models.RequestStatePending, CreatedAt: t0}).Error)
	if last != models.RequestStatePending {
		require.NoError(t, gdb.Create(&models.RequestState{JobRequestID: req.ID, RequestStateRefID: last, CreatedAt: t0.Add(time.Minute)}).Error)
	}
	return req
}

func avgOf(t *testing.T, gdb *gorm.DB, id uuid.UUID) float64 {
	t.Helper()
	var c models.Client
	require.NoError(t, gdb.First(&c, "id = ?", id).Error)
	return c.AvgRating
}

// Scenario E
func TestResubmitOverwritesSameTriple(t *testing.T) {
	svc, gdb, rec := newService(t)
	ctx := context.Background()
	owner := testutil.CreateClient(t, gdb, "owner")
	worker := testutil.CreateClient(t, gdb, "worker")
	job := testutil.CreateAdJob(t, gdb, owner.ID, "100", 1, true)
	req := request(t, gdb, worker.ID, job.ID, models.RequestStateCompleted)

	in := rating.SubmitInput{
		JobRequestID:     req.ID,
		RatingTypeID:     models.RatingTypeClientRatesContractor,
		RatingCategoryID: models.RatingCategoryQuality,
		Rating:           5,
		Description:      "great",
	}
	first, err := svc.Submit(ctx, owner.ID, in)
	require.NoError(t, err)

	in.Rating = 2
	in.Description = "  changed my mind "
	second, err := svc.Submit(ctx, owner.ID, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Rating)
	assert.Equal(t, "changed my mind", second.Description)

	var rows []models.JobRating
	require.NoError(t, gdb.Where("job_request_id = ?", req.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Rating)

	assert.InDelta(t, 2.0, avgOf(t, gdb, owner.ID), 1e-9)
	assert.InDelta(t, 2.0, avgOf(t, gdb, worker.ID), 1e-9)
	assert.Equal(t, []string{realtime.EventRatingSubmitted, realtime.EventRatingSubmitted}, rec.Types())
}

func TestSubmitValidation(t *testing.T) {
	svc, gdb, _ := newService(t)
	ctx := context.Background()
	owner := testutil.CreateClient(t, gdb, "owner")
	worker := testutil.CreateClient(t, gdb, "worker")
	job := testutil.CreateAdJob(t, gdb, owner.ID, "100", 1, true)
	done := request(t, gdb, worker.ID, job.ID, models.RequestStateCompleted)

	other := testutil.CreateAdJob(t, gdb, owner.ID, "100", 1, true)
	approved := request(t, gdb, worker.ID, other.ID, models.RequestStateApproved)
	peer := models.RatingType{ID: 3, Name: "Peer"}
	require.NoError(t, gdb.Create(&peer).Error)

	valid := rating.SubmitInput{
		JobRequestID:     done.ID,
		RatingTypeID:     models.RatingTypeContractorRatesClient,
		RatingCategoryID: models.RatingCategoryTimeliness,
		Rating:           4,
	}

	cases := []struct {
		name  string
		rater uuid.UUID
		edit  func(*rating.SubmitInput)
		want  *apperr.Error
	}{
		{"zero", worker.ID, func(in *rating.SubmitInput) { in.Rating = 0 }, apperr.ErrInvalidInput},
		{"six", worker.ID, func(in *rating.SubmitInput) { in.Rating = 6 }, apperr.ErrInvalidInput},
		{"unknown type", worker.ID, func(in *rating.SubmitInput) { in.RatingTypeID = 9 }, apperr.ErrInvalidInput},
		{"type without rater rule", worker.ID, func(in *rating.SubmitInput) { in.RatingTypeID = peer.ID }, apperr.ErrInvalidInput},
		{"unknown category", worker.ID, func(in *rating.SubmitInput) { in.RatingCategoryID = 9 }, apperr.ErrInvalidInput},
		{"unknown request", worker.ID, func(in *rating.SubmitInput) { in.JobRequestID = uuid.New() }, apperr.ErrNotFound},
		{"not completed", worker.ID, func(in *rating.SubmitInput) { in.JobRequestID = approved.ID }, apperr.ErrInvalidOperation},
		{"owner posing as contractor", owner.ID, func(in *rating.SubmitInput) {}, apperr.ErrForbidden},
		{"contractor posing as owner", worker.ID, func(in *rating.SubmitInput) {
			in.RatingTypeID = models.RatingTypeClientRatesContractor
		}, apperr.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.edit(&in)
			_, err := svc.Submit(ctx, tc.rater, in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	var n int64
	require.NoError(t, gdb.Model(&models.JobRating{}).Count(&n).Error)
	assert.Zero(t, n)

	_, err := svc.Submit(ctx, worker.ID, valid)
	require.NoError(t, err)
}

// The average mixes ratings a client received with ratings they gave.
// This pins the current behavior.
func TestAvgRatingCountsBothSidesOfEveryRequest(t *testing.T) {
	svc, gdb, _ := newService(t)
	ctx := context.Background()
	alice := testutil.CreateClient(t, gdb, "alice") // posts job1
	xena := testutil.CreateClient(t, gdb, "xena")   // works job1, posts job2
	bob := testutil.CreateClient(t, gdb, "bob")     // works job2

	job1 := testutil.CreateAdJob(t, gdb, alice.ID, "100", 1, true)
	job2 := testutil.CreateAdJob(t, gdb, xena.ID, "100", 1, true)
	req1 := request(t, gdb, xena.ID, job1.ID, models.RequestStateCompleted)
	req2 := request(t, gdb, bob.ID, job2.ID, models.RequestStateCompleted)

	submit := func(rater uuid.UUID, req uuid.UUID, typ uint, value int) {
		_, err := svc.Submit(ctx, rater, rating.SubmitInput{
			JobRequestID:     req,
			RatingTypeID:     typ,
			RatingCategoryID: models.RatingCategoryQuality,
			Rating:           value,
		})
		require.NoError(t, err)
	}
	submit(alice.ID, req1.ID, models.RatingTypeClientRatesContractor, 4) // alice rates xena
	submit(xena.ID, req1.ID, models.RatingTypeContractorRatesClient, 2)  // xena rates alice
	submit(xena.ID, req2.ID, models.RatingTypeClientRatesContractor, 5)  // xena rates bob

	assert.InDelta(t, 11.0/3.0, avgOf(t, gdb, xena.ID), 1e-9)
	assert.InDelta(t, 3.0, avgOf(t, gdb, alice.ID), 1e-9)
	assert.InDelta(t, 5.0, avgOf(t, gdb, bob.ID), 1e-9)
}

func TestRecomputeIsStable(t *testing.T) {
	svc, gdb, _ := newService(t)
	ctx := context.Background()
	owner := testutil.CreateClient(t, gdb, "owner")
	worker := testutil.CreateClient(t, gdb, "worker")
	job := testutil.CreateAdJob(t, gdb, owner.ID, "100", 1, true)
	req := request(t, gdb, worker.ID, job.ID, models.RequestStateCompleted)

	for cat, v := range map[uint]int{
		models.RatingCategoryQuality:       5,
		models.RatingCategoryTimeliness:    3,
		models.RatingCategoryCommunication: 4,
	} {
		_, err := svc.Submit(ctx, owner.ID, rating.SubmitInput{
			JobRequestID: req.ID, RatingTypeID: models.RatingTypeClientRatesContractor,
			RatingCategoryID: cat, Rating: v,
		})
		require.NoError(t, err)
	}

	// clobber the cache; it must be rebuilt from job_ratings alone
	require.NoError(t, gdb.Model(&models.Client{}).Where("id = ?", worker.ID).Update("avg_rating", 0).Error)

	a, err := svc.RecomputeAvgRating(ctx, worker.ID)
	require.NoError(t, err)
	b, err := svc.RecomputeAvgRating(ctx, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.InDelta(t, 4.0, a, 1e-9)
	assert.InDelta(t, 4.0, avgOf(t, gdb, worker.ID), 1e-9)

	ratings, err := svc.ListRatings(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, ratings, 3)
	assert.NotNil(t, ratings[0].RatingCategory)
}

func TestRecomputeWithoutRatings(t *testing.T) {
	svc, gdb, _ := newService(t)
	c := testutil.CreateClient(t, gdb, "fresh")

	avg, err := svc.RecomputeAvgRating(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Zero(t, avg)

	_, err = svc.RecomputeAvgRating(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
