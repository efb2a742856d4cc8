package handlers

import (
	"encoding/json"
	"net/http"

	"chatarchive/internal/core"
)

// HealthCheckHandler provides a health check endpoint
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"service": core.ServiceName,
		"version": core.Version,
	})
}
