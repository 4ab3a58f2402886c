package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/devink/campusconnect/internal/identity"
	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/internal/signup"
	"github.com/devink/campusconnect/internal/utils"
	"github.com/go-chi/chi/v5"
)

// TokenIssuer starts and ends sessions.
type TokenIssuer interface {
	Issue(uid string) (string, identity.Session, error)
	Verify(token string) (identity.Session, error)
	Revoke(sessionID string)
}

func CreateFormHandler(forms *signup.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := forms.Create()
		if err != nil {
			logging.ErrorLog("Signup form creation failed: %v", err)
			respondJSON(w, http.StatusServiceUnavailable, errorBody("Too many open forms"))
			return
		}
		respondJSON(w, http.StatusCreated, c.Snapshot())
	}
}

func GetFormHandler(forms *signup.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := lookupForm(w, r, forms)
		if !ok {
			return
		}
		respondJSON(w, http.StatusOK, c.Snapshot())
	}
}

func UpdateFormHandler(forms *signup.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := lookupForm(w, r, forms)
		if !ok {
			return
		}

		var req models.SignupFieldsRequest
		if !decodeJSON(w, r, &req, "Signup form update") {
			return
		}

		err := c.Update(signup.Edit{
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Email:      req.Email,
			Password:   req.Password,
			City:       req.City,
			University: req.University,
		})
		if errors.Is(err, signup.ErrFormClosed) {
			respondJSON(w, http.StatusConflict, errorBody("Form already submitted"))
			return
		}
		respondJSON(w, http.StatusOK, c.Snapshot())
	}
}

func SubmitFormHandler(forms *signup.Registry, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		c, ok := lookupForm(w, r, forms)
		if !ok {
			return
		}

		out := c.Submit(r.Context())
		finishSignup(w, forms, tokens, c.ID(), out)
		logging.DebugLog("Signup submit [%s] finished in %v (%s)", utils.HashID(c.ID()), time.Since(start), out.State)
	}
}

func SubmitFormGoogleHandler(forms *signup.Registry, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := lookupForm(w, r, forms)
		if !ok {
			return
		}

		var req models.FederatedRequest
		if !decodeJSON(w, r, &req, "Federated signup") {
			return
		}

		out := c.SubmitFederated(r.Context(), req.IDToken)
		finishSignup(w, forms, tokens, c.ID(), out)
	}
}

func finishSignup(w http.ResponseWriter, forms *signup.Registry, tokens TokenIssuer, formID string, out signup.Outcome) {
	if out.State != signup.Succeeded {
		respondJSON(w, http.StatusUnprocessableEntity, models.OutcomeResponse{State: out.State.String(), Error: out.Error})
		return
	}
	forms.Discard(formID)

	token, _, err := tokens.Issue(out.Identity.UID)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, errorBody("Could not start session"))
		return
	}
	respondJSON(w, http.StatusCreated, models.AuthResponse{
		Token:    token,
		UID:      out.Identity.UID,
		Redirect: out.Redirect,
	})
}

func lookupForm(w http.ResponseWriter, r *http.Request, forms *signup.Registry) (*signup.Controller, bool) {
	c, err := forms.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusNotFound, errorBody("Signup form not found"))
		return nil, false
	}
	return c, true
}
