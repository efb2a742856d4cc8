package core

import (
	"context"
	"net/http"
)

// Feature is a unit of the archive tool that owns storage, lifecycle and
// optional HTTP routes for the preview server.
type Feature interface {
	Name() string
	Description() string
	Init(ctx context.Context) error
	Routes() []Route
	Shutdown(ctx context.Context) error
}

// Route represents an HTTP route for a feature. Prefix routes are mounted
// as subtrees.
type Route struct {
	Method  string
	Path    string
	Prefix  bool
	Handler http.Handler
}

// BaseFeature provides common functionality for all features
type BaseFeature struct {
	name        string
	description string
	logger      *Logger
	db          *Database
}

// NewBaseFeature creates a new base feature
func NewBaseFeature(name, description string, logger *Logger, db *Database) *BaseFeature {
	return &BaseFeature{
		name:        name,
		description: description,
		logger:      logger,
		db:          db,
	}
}

// Name returns the feature name
func (f *BaseFeature) Name() string {
	return f.name
}

// Description returns the feature description
func (f *BaseFeature) Description() string {
	return f.description
}

// Logger returns the feature-specific logger
func (f *BaseFeature) Logger() *Logger {
	return f.logger.ForFeature(f.name)
}

// DB returns the database connection
func (f *BaseFeature) DB() *Database {
	return f.db
}

func (f *BaseFeature) Init(ctx context.Context) error {
	f.Logger().Debug("Initializing feature", "name", f.name)
	return nil
}

func (f *BaseFeature) Routes() []Route {
	return nil
}

func (f *BaseFeature) Shutdown(ctx context.Context) error {
	f.Logger().Debug("Shutting down feature", "name", f.name)
	return nil
}
