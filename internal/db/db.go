package db

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
)

type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	LogLevel     slog.Level
}

// Connect opens the postgres database and tunes the pool.
func Connect(dsn string, opts Options) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), GormConfig(opts.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("gorm.Open: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm.DB: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return gdb, nil
}

// GormConfig is shared by the postgres connection and the sqlite test databases.
// TranslateError is required: unique violations must surface as gorm.ErrDuplicatedKey.
func GormConfig(level slog.Level) *gorm.Config {
	lvl := logger.Warn
	if level <= slog.LevelDebug {
		lvl = logger.Info
	}
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(lvl),
	}
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(models.All()...)
}

// Classify maps storage errors onto workflow error kinds. Errors that already
// carry a kind pass through untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "record not found", err)
	}
	if IsSerializationFailure(err) {
		return apperr.Wrap(apperr.KindConflict, "concurrent update, retry the operation", err)
	}
	return err
}

// IsSerializationFailure reports postgres serialization failures and deadlocks.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
