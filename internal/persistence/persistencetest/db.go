// Package persistencetest runs the repositories against an in-memory SQLite
// database.
package persistencetest

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"memoria/internal/config"
	"memoria/internal/persistence"
)

// NewDB opens a fresh, migrated database that lives as long as t.
func NewDB(t testing.TB) *persistence.DB {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	sqlDB, err := sql.Open(sqlite.DriverName, ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)

	db, err := persistence.Open(&sqlite.Dialector{Conn: sqlDB}, config.Default(), logger)
	require.NoError(t, err)

	migrator := &persistence.Migrator{Logger: logger, DB: db}
	require.NoError(t, migrator.Init(context.Background()))
	require.NoError(t, migrator.Up(context.Background()))

	t.Cleanup(func() {
		_ = db.Shutdown(context.Background())
	})

	return db
}

// Seed inserts rows in order.
func Seed(t testing.TB, db *persistence.DB, rows ...any) {
	t.Helper()

	for _, row := range rows {
		require.NoError(t, db.Guard(context.Background(), func(tx *gorm.DB) error {
			return tx.Create(row).Error
		}))
	}
}
