package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Name        string
	Description string
	UpSQL       string
	DownSQL     string
	AppliedAt   time.Time
}

// MigrationService handles database migrations
type MigrationService struct {
	db     *Database
	logger *Logger
}

// NewMigrationService creates a new migration service
func NewMigrationService(db *Database, logger *Logger) *MigrationService {
	return &MigrationService{
		db:     db,
		logger: logger,
	}
}

// InitMigrations initializes the migrations table
func (m *MigrationService) InitMigrations(ctx context.Context) error {
	createMigrationsTable := `
	CREATE TABLE IF NOT EXISTS migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := m.db.ExecWithTimeout(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	m.logger.Debug("Migrations table initialized")
	return nil
}

// GetAppliedMigrations returns all applied migrations
func (m *MigrationService) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	query := `SELECT version, name, COALESCE(description, ''), applied_at FROM migrations ORDER BY version`

	var migrations []Migration
	err := m.db.QueryEach(ctx, func(rows *sql.Rows) error {
		var migration Migration
		if err := rows.Scan(&migration.Version, &migration.Name, &migration.Description, &migration.AppliedAt); err != nil {
			return fmt.Errorf("failed to scan migration: %w", err)
		}
		migrations = append(migrations, migration)
		return nil
	}, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}

	return migrations, nil
}

// IsMigrationApplied checks if a migration has been applied
func (m *MigrationService) IsMigrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := m.db.QueryRowScan(ctx, `SELECT COUNT(*) FROM migrations WHERE version = ?`, []any{version}, &count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}

	return count > 0, nil
}

// ApplyMigration applies a single migration
func (m *MigrationService) ApplyMigration(ctx context.Context, migration Migration) error {
	applied, err := m.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}
	if applied {
		m.logger.Debug("Migration already applied", "version", migration.Version, "name", migration.Name)
		return nil
	}

	err = m.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.UpSQL); err != nil {
			return fmt.Errorf("failed to execute migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		insertQuery := `INSERT INTO migrations (version, name, description) VALUES (?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insertQuery, migration.Version, migration.Name, migration.Description); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("Applied migration", "version", migration.Version, "name", migration.Name)
	return nil
}

// RollbackMigration rolls back a single migration
func (m *MigrationService) RollbackMigration(ctx context.Context, migration Migration) error {
	applied, err := m.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}
	if !applied {
		m.logger.Info("Migration not applied, cannot rollback", "version", migration.Version, "name", migration.Name)
		return nil
	}

	err = m.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM migrations WHERE version = ?`, migration.Version); err != nil {
			return fmt.Errorf("failed to remove migration record %d: %w", migration.Version, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("Rolled back migration", "version", migration.Version, "name", migration.Name)
	return nil
}

// GetMigrationStatus returns the status of all migrations
func (m *MigrationService) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	status := &MigrationStatus{
		AppliedCount: len(applied),
		Applied:      applied,
	}

	if len(applied) > 0 {
		status.LastApplied = &applied[len(applied)-1]
	}

	return status, nil
}

// MigrationStatus represents the current migration status
type MigrationStatus struct {
	AppliedCount int         `json:"applied_count"`
	Applied      []Migration `json:"applied"`
	LastApplied  *Migration  `json:"last_applied,omitempty"`
}
