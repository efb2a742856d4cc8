package archive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/handlers"
	"chatarchive/internal/features/archive/migrations"
	"chatarchive/internal/features/archive/services"
)

// Feature publishes the message archive as a static site
type Feature struct {
	*core.BaseFeature
	config         *Config
	migrationMgr   *migrations.Manager
	messageService *services.MessageService
	publisher      *services.Publisher
	builder        *services.Builder
	handlers       *handlers.Handlers
	watcher        *services.Watcher
}

// NewFeature creates a new archive feature
func NewFeature(logger *core.Logger, db *core.Database, config *core.Config) *Feature {
	archiveConfig := NewConfig(config)
	featureLogger := logger.ForFeature("archive")

	feature := &Feature{
		BaseFeature:    core.NewBaseFeature("archive", "Chat archive publisher", logger, db),
		config:         archiveConfig,
		migrationMgr:   migrations.NewManager(db, featureLogger),
		messageService: services.NewMessageService(db, featureLogger),
		publisher:      services.NewPublisher(archiveConfig.Site.PublishDir, featureLogger),
	}
	feature.handlers = handlers.NewHandlers(featureLogger, archiveConfig.Site.PublishDir, feature)

	return feature
}

// Init validates the configuration, migrates the schema and loads templates
func (f *Feature) Init(ctx context.Context) error {
	if err := f.BaseFeature.Init(ctx); err != nil {
		return err
	}

	if err := f.config.Validate(); err != nil {
		return err
	}

	if err := f.migrationMgr.Migrate(ctx); err != nil {
		return err
	}

	renderer, err := services.NewTemplateRenderer(f.config.Site.TemplateDir)
	if err != nil {
		return core.NewConfigurationError("failed to load templates", err)
	}

	f.builder = services.NewBuilder(
		f.config.Site,
		f.config.Title,
		f.messageService,
		renderer,
		f.publisher,
		services.FileMediaResolver{},
		core.Generator(),
		f.Logger(),
	)

	f.Logger().Info("Archive feature initialized", "publish_dir", f.config.Site.PublishDir)
	return nil
}

// Routes returns the preview routes for the archive feature
func (f *Feature) Routes() []core.Route {
	return []core.Route{
		{Method: http.MethodGet, Path: "/api/build", Handler: http.HandlerFunc(f.handlers.BuildStatus)},
		{Method: http.MethodPost, Path: "/api/build", Handler: http.HandlerFunc(f.handlers.TriggerBuild)},
		{Method: http.MethodGet, Path: "/", Prefix: true, Handler: f.handlers.Site()},
	}
}

// Build publishes the site once, waiting for a running build to finish
func (f *Feature) Build(ctx context.Context) (*services.BuildResult, error) {
	if f.builder == nil {
		return nil, core.NewFeatureError(f.Name(), "build requested before initialization", nil)
	}
	result, err := f.builder.Build(ctx)
	f.handlers.Record(result, err)
	return result, err
}

// TryBuild publishes the site once unless a build is already running
func (f *Feature) TryBuild(ctx context.Context) (*services.BuildResult, error) {
	if f.builder == nil {
		return nil, core.NewFeatureError(f.Name(), "build requested before initialization", nil)
	}
	return f.builder.TryBuild(ctx)
}

// Watch rebuilds the site whenever the archive database changes, until
// ctx is cancelled or the feature shuts down
func (f *Feature) Watch(ctx context.Context, debounce time.Duration) (*services.Watcher, error) {
	if f.watcher != nil {
		return f.watcher, nil
	}

	watcher := services.NewWatcher(f.config.Database, f.Build, debounce, f.Logger())
	if err := watcher.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start archive watcher: %w", err)
	}
	f.watcher = watcher
	return watcher, nil
}

// Shutdown stops the watcher if one is running
func (f *Feature) Shutdown(ctx context.Context) error {
	if f.watcher != nil {
		f.watcher.Stop()
		f.watcher = nil
	}
	return f.BaseFeature.Shutdown(ctx)
}

// GetMigrationManager returns the migration manager for this feature
func (f *Feature) GetMigrationManager() *migrations.Manager {
	return f.migrationMgr
}

// GetMessageService returns the message service
func (f *Feature) GetMessageService() *services.MessageService {
	return f.messageService
}

// GetPublisher returns the site publisher
func (f *Feature) GetPublisher() *services.Publisher {
	return f.publisher
}
