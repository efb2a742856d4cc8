package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultQueryTimeout bounds every data-source query
const DefaultQueryTimeout = 30 * time.Second

// Database wraps sql.DB with timeouts and transaction helpers
type Database struct {
	*sql.DB
	logger  *Logger
	timeout time.Duration
}

// NewDatabase creates a new database wrapper
func NewDatabase(db *sql.DB, logger *Logger) *Database {
	return &Database{
		DB:      db,
		logger:  logger,
		timeout: DefaultQueryTimeout,
	}
}

// OpenDatabase opens the SQLite file at path and enables WAL mode so a
// watch-mode build can read while another process writes.
func OpenDatabase(path string, logger *Logger) (*Database, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, NewDatabaseError("failed to open database", err)
	}

	// SQLite has a single writer, and the pragmas below are per connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, NewDatabaseError(fmt.Sprintf("failed to apply %q", pragma), err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewDatabaseError("failed to ping database", err)
	}

	logger.Debug("Opened database", "path", path)
	return NewDatabase(db, logger), nil
}

// Transaction executes a function within a database transaction
func (db *Database) Transaction(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return err
}

// QueryEach runs query under the database timeout and calls fn for every
// row before the timeout context is released.
func (db *Database) QueryEach(ctx context.Context, fn func(*sql.Rows) error, query string, args ...any) error {
	queryCtx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	rows, err := db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}

	return rows.Err()
}

// QueryRowScan executes a single-row query with a timeout and scans it into dest
func (db *Database) QueryRowScan(ctx context.Context, query string, args []any, dest ...any) error {
	queryCtx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	return db.QueryRowContext(queryCtx, query, args...).Scan(dest...)
}

// ExecWithTimeout executes a command with a timeout
func (db *Database) ExecWithTimeout(ctx context.Context, query string, args ...any) (sql.Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	return db.ExecContext(queryCtx, query, args...)
}

// Close closes the database connection
func (db *Database) Close() error {
	db.logger.Debug("Closing database connection")
	return db.DB.Close()
}
