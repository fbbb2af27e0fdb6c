package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/geo-attendance/internal/config"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/database/postgres"
	"github.com/kozaktomas/geo-attendance/internal/logging"
	"go.uber.org/zap"
)

// connectStores opens the PostgreSQL pool, applies migrations and registers
// the repositories with the database provider. The caller closes the pool.
func connectStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Initialize(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	userRepo := postgres.NewUserRepository(pool)
	officeRepo := postgres.NewOfficeRepository(pool)
	attendanceRepo := postgres.NewAttendanceRepository(pool)
	database.RegisterPostgresBackend(
		func() database.UserWriter { return userRepo },
		func() database.OfficeStore { return officeRepo },
		func() database.AttendanceWriter { return attendanceRepo },
	)
	return pool, nil
}

// cliLogger is the human-readable logger used by one-shot commands.
func cliLogger(cfg *config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// connectCLIStores is connectStores for one-shot commands.
func connectCLIStores(ctx context.Context, cfg *config.Config) (*postgres.Pool, error) {
	return connectStores(ctx, cfg, cliLogger(cfg))
}
