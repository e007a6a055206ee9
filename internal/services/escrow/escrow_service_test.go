package escrow_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/services/escrow"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/testutil"
)

func settle(t *testing.T, svc *escrow.Service, req *models.JobRequest) (*models.Payment, error) {
	t.Helper()
	var pay *models.Payment
	err := svc.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		pay, err = svc.Settle(tx, req, 1)
		return err
	})
	return pay, err
}

func TestSettleCreatesPaymentForOneHire(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := escrow.NewService(gdb)
	owner := testutil.CreateClient(t, gdb, "owner")
	worker := testutil.CreateClient(t, gdb, "worker")
	job := testutil.CreateAdJob(t, gdb, owner.ID, "150000", 3, true)

	req := models.JobRequest{ClientID: worker.ID, AdJobID: job.ID}
	require.NoError(t, gdb.Create(&req).Error)

	pay, err := settle(t, svc, &req)
	require.NoError(t, err)

	assert.True(t, pay.Amount.Equal(decimal.RequireFromString("150000")), pay.Amount.String())
	assert.Equal(t, owner.ID, pay.JobOrdererID)
	assert.Equal(t, worker.ID, pay.ContractorID)
	assert.Equal(t, models.PaymentTypeEscrowRelease, pay.PaymentTypeID)

	var details map[string]any
	require.NoError(t, json.Unmarshal(pay.Details, &details))
	assert.EqualValues(t, 3, details["vacancy"])

	var esc models.Escrow
	require.NoError(t, gdb.Where("ad_job_id = ?", job.ID).First(&esc).Error)
	assert.Equal(t, models.EscrowStatePartiallyReleased, esc.State)
}

func TestSettleReleasesEscrowWhenFullyPaid(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := escrow.NewService(gdb)
	owner := testutil.CreateClient(t, gdb, "owner")
	job := testutil.CreateAdJob(t, gdb, owner.ID, "50", 2, true)

	for _, name := range []string{"w1", "w2"} {
		w := testutil.CreateClient(t, gdb, name)
		req := models.JobRequest{ClientID: w.ID, AdJobID: job.ID}
		require.NoError(t, gdb.Create(&req).Error)
		_, err := settle(t, svc, &req)
		require.NoError(t, err)
	}

	var esc models.Escrow
	require.NoError(t, gdb.Where("ad_job_id = ?", job.ID).First(&esc).Error)
	assert.Equal(t, models.EscrowStateReleased, esc.State)
}

func TestSettleWithoutEscrowFails(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := escrow.NewService(gdb)
	owner := testutil.CreateClient(t, gdb, "owner")
	worker := testutil.CreateClient(t, gdb, "worker")
	job := testutil.CreateAdJob(t, gdb, owner.ID, "100", 1, false)

	req := models.JobRequest{ClientID: worker.ID, AdJobID: job.ID}
	require.NoError(t, gdb.Create(&req).Error)

	_, err := settle(t, svc, &req)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNoEscrowFound)

	var count int64
	require.NoError(t, gdb.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSettleTwiceHitsUniqueIndex(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := escrow.NewService(gdb)
	owner := testutil.CreateClient(t, gdb, "owner")
	worker := testutil.CreateClient(t, gdb, "worker")
	job := testutil.CreateAdJob(t, gdb, owner.ID, "100", 2, true)

	req := models.JobRequest{ClientID: worker.ID, AdJobID: job.ID}
	require.NoError(t, gdb.Create(&req).Error)

	_, err := settle(t, svc, &req)
	require.NoError(t, err)
	_, err = settle(t, svc, &req)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	var count int64
	require.NoError(t, gdb.Model(&models.Payment{}).Where("job_request_id = ?", req.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSettleRejectsOverdraw(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := escrow.NewService(gdb)
	owner := testutil.CreateClient(t, gdb, "owner")
	job := testutil.CreateAdJob(t, gdb, owner.ID, "100", 1, true)

	first := models.JobRequest{ClientID: testutil.CreateClient(t, gdb, "w1").ID, AdJobID: job.ID}
	second := models.JobRequest{ClientID: testutil.CreateClient(t, gdb, "w2").ID, AdJobID: job.ID}
	require.NoError(t, gdb.Create(&first).Error)
	require.NoError(t, gdb.Create(&second).Error)

	_, err := settle(t, svc, &first)
	require.NoError(t, err)
	_, err = settle(t, svc, &second)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)

	var count int64
	require.NoError(t, gdb.Model(&models.Payment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var esc models.Escrow
	require.NoError(t, gdb.Where("ad_job_id = ?", job.ID).First(&esc).Error)
	assert.Equal(t, models.EscrowStateReleased, esc.State)
}

func TestListPaymentsAndPaymentFor(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := escrow.NewService(gdb)
	owner := testutil.CreateClient(t, gdb, "owner")
	worker := testutil.CreateClient(t, gdb, "worker")
	stranger := testutil.CreateClient(t, gdb, "stranger")
	job := testutil.CreateAdJob(t, gdb, owner.ID, "100", 1, true)

	req := models.JobRequest{ClientID: worker.ID, AdJobID: job.ID}
	require.NoError(t, gdb.Create(&req).Error)

	none, err := svc.PaymentFor(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = settle(t, svc, &req)
	require.NoError(t, err)

	mine, err := svc.ListPayments(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	mine, err = svc.ListPayments(context.Background(), worker.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	mine, err = svc.ListPayments(context.Background(), stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	got, err := svc.PaymentFor(context.Background(), req.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req.ID, got.JobRequestID)
}

func TestReleaseState(t *testing.T) {
	total := decimal.RequireFromString("300")
	assert.Equal(t, models.EscrowStateHeld, escrow.ReleaseState(total, decimal.Zero))
	assert.Equal(t, models.EscrowStatePartiallyReleased, escrow.ReleaseState(total, decimal.RequireFromString("100")))
	assert.Equal(t, models.EscrowStateReleased, escrow.ReleaseState(total, total))
}
