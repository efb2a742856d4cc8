package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger provides component-scoped structured logging
type Logger struct {
	*slog.Logger
	level    *slog.LevelVar
	mu       *sync.Mutex
	features map[string]*slog.Logger
}

// NewLogger creates a new logger writing text records to stdout
func NewLogger() *Logger {
	return NewLoggerWithWriter(os.Stdout, slog.LevelInfo)
}

// NewLoggerWithWriter creates a logger writing to w at the given level
func NewLoggerWithWriter(w io.Writer, level slog.Level) *Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: levelVar,
	})

	return &Logger{
		Logger:   slog.New(handler),
		level:    levelVar,
		mu:       &sync.Mutex{},
		features: make(map[string]*slog.Logger),
	}
}

// NewNopLogger returns a logger that discards everything, for tests
func NewNopLogger() *Logger {
	return NewLoggerWithWriter(io.Discard, slog.LevelError)
}

func (l *Logger) derive(logger *slog.Logger) *Logger {
	return &Logger{
		Logger:   logger,
		level:    l.level,
		mu:       l.mu,
		features: l.features,
	}
}

// ForFeature returns a logger specific to a feature
func (l *Logger) ForFeature(featureName string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	featureLogger, exists := l.features[featureName]
	if !exists {
		featureLogger = l.Logger.With("feature", featureName)
		l.features[featureName] = featureLogger
	}

	return l.derive(featureLogger)
}

// WithBuild returns a logger tagged with a build run identifier
func (l *Logger) WithBuild(buildID string) *Logger {
	return l.derive(l.Logger.With("build_id", buildID))
}

// WithContext returns a logger carrying the request ID set by the chi
// RequestID middleware, if any
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	if requestID := middleware.GetReqID(ctx); requestID != "" {
		return l.derive(l.Logger.With("request_id", requestID))
	}

	return l
}

// SetLevel sets the logging level for this logger and every logger derived from it
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// ParseLevel maps a config level name to a slog level
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// LogFeatureError logs a feature-specific error
func (l *Logger) LogFeatureError(featureName, message string, err error, attrs ...any) {
	featureLogger := l.ForFeature(featureName)
	allAttrs := append([]any{"error", err}, attrs...)
	featureLogger.Error(message, allAttrs...)
}
