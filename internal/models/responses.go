package models

import "time"

type StatusResponse struct {
	Status   string `json:"status"`
	Redirect string `json:"redirect,omitempty"`
}

type ErrorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// AuthResponse is returned by successful login and signup calls.
type AuthResponse struct {
	Token    string `json:"token"`
	UID      string `json:"uid"`
	Redirect string `json:"redirect"`
}

// OutcomeResponse reports a failed submission with its user-facing message.
type OutcomeResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

type CitiesResponse struct {
	Cities []string `json:"cities"`
	Source string   `json:"source"`
}

type UniversitiesResponse struct {
	City         string   `json:"city"`
	Universities []string `json:"universities"`
	FreeText     bool     `json:"free_text"`
}

type ConfirmationResponse struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

type EventCreatedResponse struct {
	ID string `json:"id"`
}

type FeedResponse struct {
	Loading bool    `json:"loading"`
	Events  []Event `json:"events"`
}

// Event is one entry of the event feed.
type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Location     string    `json:"location"`
	University   string    `json:"university,omitempty"`
	City         string    `json:"city,omitempty"`
	OwnerID      string    `json:"ownerId"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}
