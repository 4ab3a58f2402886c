package api

import (
	"encoding/json"
	"net/http"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.ErrorLog("JSON encoding failed: %v", err)
	}
}

// decodeJSON reads the body into v and validates it. It reports false after
// writing a 400 response.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, what string) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logging.WarnLog("%s failed: invalid JSON", what)
		respondJSON(w, http.StatusBadRequest, errorBody("Invalid JSON"))
		return false
	}
	if err := validate.Struct(v); err != nil {
		logging.WarnLog("%s failed: validation error", what)
		respondJSON(w, http.StatusBadRequest, errorBody("Validation failed"))
		return false
	}
	return true
}
