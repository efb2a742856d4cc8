package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("permission denied")
	err := fmt.Errorf("build: %w", NewPublishError("index.xml", cause))

	if !errors.Is(err, cause) {
		t.Error("Expected the cause to be reachable with errors.Is")
	}
	if !HasCode(err, ErrCodePublish) {
		t.Errorf("Expected %s code, got %v", ErrCodePublish, err)
	}
	if HasCode(err, ErrCodeRender) {
		t.Error("Did not expect render code")
	}
	if HasCode(cause, ErrCodePublish) {
		t.Error("Plain errors carry no code")
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{NewValidationError("bad", nil), http.StatusBadRequest, ErrCodeValidation},
		{NewAppError(ErrCodeNoData, "empty", nil), http.StatusNotFound, ErrCodeNoData},
		{NewAppError(ErrCodeBuildRunning, "busy", nil), http.StatusConflict, ErrCodeBuildRunning},
		{errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		HandleError(rec, tt.err)

		if rec.Code != tt.status {
			t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
		}

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
			Success bool `json:"success"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if body.Error.Code != tt.code || body.Success {
			t.Errorf("Unexpected body %+v", body)
		}
	}
}
