package persistence

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"memoria/internal/core"
)

// Migrator keeps the schema of every table the service reads in sync with
// the models. Collaborator-owned tables are only created when missing.
type Migrator struct {
	Logger *slog.Logger
	DB     core.DB
}

func (m *Migrator) Init(_ context.Context) error {
	m.Logger = m.Logger.With("component", "migrator")
	return nil
}

func (m *Migrator) Up(ctx context.Context) error {
	m.Logger.Info("Migrating database up")

	err := m.DB.Guard(ctx, func(tx *gorm.DB) error {
		return tx.AutoMigrate(core.Models()...)
	})
	if err != nil {
		return err
	}

	m.Logger.Info("Database migration completed")
	return nil
}

// Down drops the tables in reverse migration order.
func (m *Migrator) Down(ctx context.Context) error {
	m.Logger.Info("Migrating database down")

	err := m.DB.Guard(ctx, func(tx *gorm.DB) error {
		return tx.Migrator().DropTable(lo.Reverse(core.Models())...)
	})
	if err != nil {
		return err
	}

	m.Logger.Info("Database migration completed")
	return nil
}
