package models

// SignupFieldsRequest is a partial edit of a signup form; nil fields are unchanged.
type SignupFieldsRequest struct {
	FirstName  *string `json:"first_name,omitempty" validate:"omitempty,max=128"`
	LastName   *string `json:"last_name,omitempty" validate:"omitempty,max=128"`
	Email      *string `json:"email,omitempty" validate:"omitempty,max=254"`
	Password   *string `json:"password,omitempty" validate:"omitempty,max=256"`
	City       *string `json:"city,omitempty" validate:"omitempty,max=128"`
	University *string `json:"university,omitempty" validate:"omitempty,max=256"`
}

// FederatedRequest carries a Google ID token.
type FederatedRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// LoginRequest is a password sign-in. Email format is checked by the
// identity provider so its error message reaches the user unchanged.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateEventRequest posts a new event to the feed.
type CreateEventRequest struct {
	Title string `json:"title" validate:"max=512"`
}
