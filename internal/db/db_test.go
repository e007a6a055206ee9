package db_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/db"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/testutil"
)

func TestSeedIsIdempotent(t *testing.T) {
	gdb := testutil.NewDB(t)

	require.NoError(t, db.Seed(gdb))

	var count int64
	require.NoError(t, gdb.Model(&models.RequestStateRef{}).Count(&count).Error)
	assert.EqualValues(t, 4, count)

	var completed models.RequestStateRef
	require.NoError(t, gdb.First(&completed, models.RequestStateCompleted).Error)
	assert.True(t, completed.IsTerminal())
	assert.Equal(t, "Дууссан", completed.Name)
}

func TestUniqueViolationTranslated(t *testing.T) {
	gdb := testutil.NewDB(t)
	owner := testutil.CreateClient(t, gdb, "owner")
	worker := testutil.CreateClient(t, gdb, "worker")
	job := testutil.CreateAdJob(t, gdb, owner.ID, "100", 1, true)

	require.NoError(t, gdb.Create(&models.JobRequest{ClientID: worker.ID, AdJobID: job.ID}).Error)
	err := gdb.Create(&models.JobRequest{ClientID: worker.ID, AdJobID: job.ID}).Error

	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, db.Classify(nil))

	nf := db.Classify(fmt.Errorf("load: %w", gorm.ErrRecordNotFound))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(nf))

	ser := db.Classify(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(ser))

	dl := db.Classify(&pgconn.PgError{Code: "40P01", Message: "deadlock detected"})
	assert.True(t, db.IsSerializationFailure(dl))

	kept := apperr.New(apperr.KindForbidden, "not yours")
	assert.Same(t, kept, db.Classify(kept))

	plain := errors.New("disk full")
	assert.Equal(t, plain, db.Classify(plain))
}
