package api

import (
	"net/http"

	"github.com/devink/campusconnect/internal/confirmation"
	"github.com/devink/campusconnect/internal/models"
)

func SuccessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("type")
		view := confirmation.Lookup(kind)
		respondJSON(w, http.StatusOK, models.ConfirmationResponse{
			Type:     kind,
			Title:    view.Title,
			Subtitle: view.Subtitle,
		})
	}
}
