package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kakunuriMahesh/activity-tracker-backend/internal/apperr"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/logger"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP: expected failures carry
// their own status, everything else is logged and becomes a 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		respondWithError(w, appErr.StatusCode, appErr.Message)
		return
	}
	logger.Sugar.Errorw("request failed", "error", err)
	respondWithError(w, http.StatusInternalServerError, "Internal server error")
}
