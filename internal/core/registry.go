package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the features a command runs with
type Registry struct {
	features map[string]Feature
	mutex    sync.RWMutex
	logger   *Logger
}

// NewRegistry creates a new feature registry
func NewRegistry(logger *Logger) *Registry {
	return &Registry{
		features: make(map[string]Feature),
		logger:   logger,
	}
}

// Register adds a feature to the registry
func (r *Registry) Register(feature Feature) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := feature.Name()
	if _, exists := r.features[name]; exists {
		return fmt.Errorf("feature %s already registered", name)
	}

	r.features[name] = feature
	r.logger.Debug("Registered feature", "name", name)
	return nil
}

// Get retrieves a feature by name
func (r *Registry) Get(name string) (Feature, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	feature, exists := r.features[name]
	return feature, exists
}

// List returns all registered features sorted by name
func (r *Registry) List() []Feature {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	features := make([]Feature, 0, len(r.features))
	for _, feature := range r.features {
		features = append(features, feature)
	}

	sort.Slice(features, func(i, j int) bool {
		return features[i].Name() < features[j].Name()
	})

	return features
}

// InitAll initializes every feature, stopping at the first failure
func (r *Registry) InitAll(ctx context.Context) error {
	for _, feature := range r.List() {
		if err := feature.Init(ctx); err != nil {
			return NewFeatureError(feature.Name(), "failed to initialize", err)
		}
	}
	return nil
}

// ShutdownAll shuts down every feature, logging failures
func (r *Registry) ShutdownAll(ctx context.Context) {
	for _, feature := range r.List() {
		if err := feature.Shutdown(ctx); err != nil {
			r.logger.Error("Failed to shutdown feature", "name", feature.Name(), "error", err)
		}
	}
}

// Routes returns all routes from registered features
func (r *Registry) Routes() []Route {
	var routes []Route
	for _, feature := range r.List() {
		routes = append(routes, feature.Routes()...)
	}
	return routes
}
