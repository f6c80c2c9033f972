package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"atelier-be/internal/config"
	"atelier-be/internal/logger"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// InitDB opens the configured database and exits the process when it is
// unreachable.
func InitDB(cfg *config.Config) *sql.DB {
	db, err := NewDatabase(cfg)
	if err != nil {
		logger.L().Fatal("database init failed", zap.Error(err))
	}

	logger.L().Info("database connection established", zap.String("driver", driverName(cfg)))
	return db
}

// NewDatabase opens a pool for cfg.DBDriver ("postgres" via lib/pq or "pgx"
// via the pgx stdlib adapter) and pings it.
func NewDatabase(cfg *config.Config) (*sql.DB, error) {
	return newDatabaseWithDriver(cfg, driverName(cfg))
}

func newDatabaseWithDriver(cfg *config.Config, driver string) (*sql.DB, error) {
	db, err := sql.Open(driver, buildDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to DB")
	}

	if cfg.DBMaxOpen > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpen)
	}
	if cfg.DBMaxIdle > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdle)
	}
	if cfg.DBConnMaxAge > 0 {
		db.SetConnMaxLifetime(cfg.DBConnMaxAge)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping DB")
	}

	return db, nil
}

func driverName(cfg *config.Config) string {
	if cfg.DBDriver == "" {
		return "postgres"
	}
	return cfg.DBDriver
}

// buildDSN prefers DATABASE_URL and falls back to a key/value DSN, which both
// lib/pq and pgx accept.
func buildDSN(cfg *config.Config) string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}

	sslmode := cfg.DBSSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, sslmode,
	)
}
