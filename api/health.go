package api

import (
	"net/http"

	"github.com/devink/campusconnect/internal/models"
)

func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, models.StatusResponse{Status: "ok"})
	}
}

func errorBody(msg string) models.ErrorResponse {
	return models.ErrorResponse{Error: msg}
}
