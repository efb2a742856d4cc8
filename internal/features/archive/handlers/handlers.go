package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/services"
)

// Builder runs a site build unless another one is in progress
type Builder interface {
	TryBuild(ctx context.Context) (*services.BuildResult, error)
}

// Handlers serves the published site and the build status
type Handlers struct {
	logger  *core.Logger
	siteDir string
	builder Builder

	mu      sync.RWMutex
	last    *services.BuildResult
	lastErr error
}

// NewHandlers creates a new handlers instance
func NewHandlers(logger *core.Logger, siteDir string, builder Builder) *Handlers {
	return &Handlers{
		logger:  logger,
		siteDir: siteDir,
		builder: builder,
	}
}

// Record stores the outcome of a build for the status endpoint
func (h *Handlers) Record(result *services.BuildResult, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last, h.lastErr = result, err
}

type statusResponse struct {
	Success bool                  `json:"success"`
	Build   *services.BuildResult `json:"build,omitempty"`
	Error   string                `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// BuildStatus reports the most recent build
func (h *Handlers) BuildStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	last, lastErr := h.last, h.lastErr
	h.mu.RUnlock()

	if last == nil && lastErr == nil {
		core.WriteErrorResponse(w, http.StatusNotFound, core.NewNotFoundError("no build has run yet", nil))
		return
	}

	resp := statusResponse{Success: lastErr == nil, Build: last}
	if lastErr != nil {
		resp.Error = lastErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// TriggerBuild runs a build and reports its result. A request arriving
// while any build is running, including one started by the watcher, gets
// 409.
func (h *Handlers) TriggerBuild(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithContext(r.Context())
	result, err := h.builder.TryBuild(r.Context())

	switch {
	case errors.Is(err, services.ErrBuildRunning):
		logger.Info("Build request rejected, a build is already running")
		core.HandleError(w, err)
		return
	case errors.Is(err, services.ErrNoData):
		h.Record(result, err)
		core.HandleError(w, err)
		return
	case err != nil:
		h.Record(result, err)
		logger.Error("Build failed", "error", err)
		core.HandleError(w, err)
		return
	}
	h.Record(result, nil)

	logger.Info("Build triggered over HTTP", "build_id", result.ID, "pages", result.Pages)
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Build: result})
}

// contentTypes covers published files whose type the standard table
// lacks or gets wrong for feeds
var contentTypes = map[string]string{
	".js":   "application/javascript",
	".css":  "text/css",
	".xml":  "application/rss+xml; charset=utf-8",
	".atom": "application/atom+xml; charset=utf-8",
}

// Site serves the publish directory
func (h *Handlers) Site() http.Handler {
	files := http.FileServer(http.Dir(h.siteDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ext := strings.ToLower(filepath.Ext(r.URL.Path))
		if ct, ok := contentTypes[ext]; ok {
			w.Header().Set("Content-Type", ct)
		}
		files.ServeHTTP(w, r)
	})
}
