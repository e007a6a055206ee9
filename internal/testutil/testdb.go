// Package testutil builds throwaway sqlite databases and fixtures for tests.
package testutil

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/db"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
)

// NewDB returns a migrated, seeded in-memory database. It is pinned to a
// single connection so each transaction runs alone, like a row lock would
// force on postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig(slog.LevelWarn))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	require.NoError(t, db.Seed(gdb))
	return gdb
}

func CreateClient(t testing.TB, gdb *gorm.DB, name string) models.Client {
	t.Helper()
	c := models.Client{
		Name:     name,
		Email:    name + "-" + uuid.NewString()[:8] + "@example.com",
		Role:     models.RoleClient,
		IsActive: true,
	}
	require.NoError(t, gdb.Create(&c).Error)
	return c
}

// CreateAdJob inserts an ad owned by ownerID with one job and, when withEscrow
// is set, the job's escrow.
func CreateAdJob(t testing.TB, gdb *gorm.DB, ownerID uuid.UUID, wage string, vacancy int, withEscrow bool) models.AdJob {
	t.Helper()
	w := decimal.RequireFromString(wage)
	total := models.JobTotal(w, vacancy)

	ad := models.Ad{ClientID: ownerID, Title: "Warehouse help", TotalWage: total, AdStateID: models.AdStateOpen}
	require.NoError(t, gdb.Create(&ad).Error)

	job := models.AdJob{
		AdID:       ad.ID,
		Title:      "Loader",
		Vacancy:    vacancy,
		Wage:       w,
		TotalWage:  total,
		StartDate:  time.Now(),
		EndDate:    time.Now().Add(48 * time.Hour),
		JobStateID: models.AdStateOpen,
	}
	require.NoError(t, gdb.Create(&job).Error)

	if withEscrow {
		esc := models.Escrow{AdJobID: job.ID, TotalAmount: total, State: models.EscrowStateHeld}
		require.NoError(t, gdb.Create(&esc).Error)
	}
	return job
}
