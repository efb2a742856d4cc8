package migrations

import (
	"context"
	"fmt"

	"chatarchive/internal/core"
)

// Manager handles archive schema migrations
type Manager struct {
	migrationService *core.MigrationService
	logger           *core.Logger
}

// NewManager creates a new archive migration manager
func NewManager(db *core.Database, logger *core.Logger) *Manager {
	return &Manager{
		migrationService: core.NewMigrationService(db, logger),
		logger:           logger,
	}
}

// Migrations returns all archive migrations in order
func (m *Manager) Migrations() []core.Migration {
	return []core.Migration{
		Migration001CreateArchiveTables,
	}
}

// Migrate applies all pending archive migrations
func (m *Manager) Migrate(ctx context.Context) error {
	if err := m.migrationService.InitMigrations(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	for _, migration := range m.Migrations() {
		if err := m.migrationService.ApplyMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	m.logger.Debug("Archive migrations completed")
	return nil
}

// Rollback rolls back the most recently applied archive migration
func (m *Manager) Rollback(ctx context.Context) error {
	if err := m.migrationService.InitMigrations(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	applied, err := m.migrationService.GetAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	known := make(map[int]core.Migration)
	for _, migration := range m.Migrations() {
		known[migration.Version] = migration
	}

	var last *core.Migration
	for i := len(applied) - 1; i >= 0; i-- {
		if migration, ok := known[applied[i].Version]; ok {
			last = &migration
			break
		}
	}

	if last == nil {
		return fmt.Errorf("no archive migrations have been applied")
	}

	if err := m.migrationService.RollbackMigration(ctx, *last); err != nil {
		return fmt.Errorf("failed to rollback migration %d (%s): %w", last.Version, last.Name, err)
	}

	return nil
}

// Status returns the current migration status
func (m *Manager) Status(ctx context.Context) (*core.MigrationStatus, error) {
	if err := m.migrationService.InitMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	return m.migrationService.GetMigrationStatus(ctx)
}

// GetPendingMigrations returns migrations that haven't been applied yet
func (m *Manager) GetPendingMigrations(ctx context.Context) ([]core.Migration, error) {
	applied, err := m.migrationService.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for _, migration := range applied {
		appliedVersions[migration.Version] = true
	}

	var pending []core.Migration
	for _, migration := range m.Migrations() {
		if !appliedVersions[migration.Version] {
			pending = append(pending, migration)
		}
	}

	return pending, nil
}
