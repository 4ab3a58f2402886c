package models

import "time"

// UsersCollection holds AccountProfile documents keyed by identity uid.
const UsersCollection = "users"

// EventsCollection holds feed events.
const EventsCollection = "events"

// NotSpecified fills city/university on a federated signup that left them empty.
const NotSpecified = "Не указан"

// AccountProfile is the document written once at signup.
type AccountProfile struct {
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	City       string    `json:"city"`
	University string    `json:"university"`
	PhotoURL   string    `json:"photoURL,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Me is the signed-in user as shown on the home view. Profile is nil when
// no profile document could be read; only the raw identity fields are set then.
type Me struct {
	UID         string          `json:"uid"`
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name,omitempty"`
	PhotoURL    string          `json:"photo_url,omitempty"`
	Profile     *AccountProfile `json:"profile,omitempty"`
}
