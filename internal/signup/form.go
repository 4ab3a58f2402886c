package signup

import (
	"strings"

	"github.com/devink/campusconnect/internal/directory"
	"github.com/devink/campusconnect/internal/password"
)

// Fields are the values a user types or selects.
type Fields struct {
	FirstName  string
	LastName   string
	Email      string
	Password   string
	City       string
	University string
}

// Edit is a partial update; nil members are left unchanged.
type Edit struct {
	FirstName  *string
	LastName   *string
	Email      *string
	Password   *string
	City       *string
	University *string
}

// Snapshot is the observable state of a form. The password is never included.
type Snapshot struct {
	ID                 string                `json:"id"`
	FirstName          string                `json:"first_name"`
	LastName           string                `json:"last_name"`
	Email              string                `json:"email"`
	City               string                `json:"city"`
	University         string                `json:"university"`
	Requirements       password.Requirements `json:"requirements"`
	Cities             []string              `json:"cities"`
	CitiesLoading      bool                  `json:"cities_loading"`
	CitySource         directory.Source      `json:"city_source,omitempty"`
	Universities       []string              `json:"universities"`
	FreeTextUniversity bool                  `json:"free_text_university"`
	State              string                `json:"state"`
	Submitting         bool                  `json:"submitting"`
	Error              string                `json:"error,omitempty"`
}

// Valid reports whether f may be sent to the identity provider.
func Valid(f Fields, req password.Requirements) bool {
	return strings.TrimSpace(f.FirstName) != "" &&
		strings.TrimSpace(f.LastName) != "" &&
		f.Email != "" &&
		f.City != "" &&
		f.University != "" &&
		req.Satisfied()
}

// splitDisplayName takes the first two whitespace separated tokens of a
// federated display name.
func splitDisplayName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) > 0 {
		first = parts[0]
	}
	if len(parts) > 1 {
		last = parts[1]
	}
	return first, last
}
