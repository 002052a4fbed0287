package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/samber/lo"
	"github.com/sony/gobreaker/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"memoria/internal/config"
	"memoria/internal/core"
)

// DB is the gorm handle shared by the repositories. All queries go through
// Guard, which trips a circuit breaker after repeated storage failures.
type DB struct {
	Config *config.Config
	Logger *slog.Logger

	db      *gorm.DB
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// Open wraps an arbitrary gorm dialector. Used to run the repositories on
// SQLite.
func Open(dialector gorm.Dialector, cfg *config.Config, logger *slog.Logger) (*DB, error) {
	db := &DB{Config: cfg, Logger: logger}
	if err := db.open(dialector); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *DB) Init(_ context.Context) error {
	if db.Config.DatabaseURL == "" {
		return ErrNoDatabaseURL
	}

	connConfig, err := pgx.ParseConfig(db.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}

	if timeout := db.Config.DBStatementTimeout; timeout > 0 {
		connConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(timeout.Milliseconds(), 10)
	}

	return db.open(postgres.New(postgres.Config{Conn: stdlib.OpenDB(*connConfig)}))
}

func (db *DB) open(dialector gorm.Dialector) error {
	db.Logger = db.Logger.With("component", "persistence.DB")

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return err
	}
	db.db = gormDB

	failures := uint32(lo.CoalesceOrEmpty(db.Config.BreakerFailures, config.DefaultBreakerFailures)) // nolint:gosec

	db.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "database",
		Timeout: lo.CoalesceOrEmpty(db.Config.BreakerTimeout, config.DefaultBreakerTimeout),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, gorm.ErrRecordNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			db.Logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return nil
}

// Guard runs fn with a context-bound session. Errors are wrapped in
// core.ErrUnavailable.
func (db *DB) Guard(ctx context.Context, fn func(tx *gorm.DB) error) error {
	_, err := db.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn(db.db.WithContext(ctx))
	})
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrUnavailable, err)
	}
	return nil
}

func (db *DB) EstimatedCount(ctx context.Context, tableName string) (int64, error) {
	var count int64

	err := db.Guard(ctx, func(tx *gorm.DB) error {
		if tx.Dialector.Name() != "postgres" {
			return tx.Table(tableName).Count(&count).Error
		}
		return tx.Raw(
			`SELECT reltuples::bigint AS count
				FROM pg_class
				WHERE relname = ?`, tableName,
		).Scan(&count).Error
	})

	return count, err
}

func (db *DB) HealthCheck(ctx context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Shutdown(_ context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}
