package api

import (
	"net/http"
	"strings"

	"github.com/devink/campusconnect/internal/directory"
	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/internal/signup"
)

// CitiesHandler runs a fresh city lookup. It never fails; a broken lookup
// yields the fallback list.
func CitiesHandler(cities directory.CityLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, src := cities.Cities(r.Context())
		respondJSON(w, http.StatusOK, models.CitiesResponse{Cities: list, Source: string(src)})
	}
}

// UniversitiesHandler lists the universities of ?city=. An empty list means
// the client should accept free text.
func UniversitiesHandler(universities signup.UniversityLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		city := strings.TrimSpace(r.URL.Query().Get("city"))
		list := []string{}
		if city != "" {
			list = universities.For(city)
		}
		respondJSON(w, http.StatusOK, models.UniversitiesResponse{
			City:         city,
			Universities: list,
			FreeText:     city != "" && len(list) == 0,
		})
	}
}
