package api

import (
	"context"
	"net/http"

	"github.com/devink/campusconnect/internal/login"
	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/internal/session"
	"github.com/devink/campusconnect/internal/utils"
)

// SignOuter ends a user's authentication session.
type SignOuter interface {
	SignOut(ctx context.Context, uid string) error
}

func LoginHandler(ctrl *login.Controller, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if !decodeJSON(w, r, &req, "Login") {
			return
		}
		finishLogin(w, tokens, ctrl.Submit(r.Context(), req.Email, req.Password))
	}
}

func LoginGoogleHandler(ctrl *login.Controller, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.FederatedRequest
		if !decodeJSON(w, r, &req, "Federated login") {
			return
		}
		finishLogin(w, tokens, ctrl.SubmitFederated(r.Context(), req.IDToken))
	}
}

func finishLogin(w http.ResponseWriter, tokens TokenIssuer, out login.Outcome) {
	if !out.OK() {
		respondJSON(w, http.StatusUnauthorized, errorBody(out.Error))
		return
	}
	token, _, err := tokens.Issue(out.Identity.UID)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, errorBody("Could not start session"))
		return
	}
	respondJSON(w, http.StatusOK, models.AuthResponse{
		Token:    token,
		UID:      out.Identity.UID,
		Redirect: out.Redirect,
	})
}

// LogoutHandler revokes the current session token and signs the user out.
func LogoutHandler(provider SignOuter, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cur, _ := session.FromContext(r.Context())
		tokens.Revoke(cur.Session.ID)
		if err := provider.SignOut(r.Context(), cur.Session.UID); err != nil {
			logging.ErrorLog("Sign-out failed uid=[%s]: %v", utils.HashID(cur.Session.UID), err)
		}
		respondJSON(w, http.StatusOK, models.StatusResponse{Status: "signed_out", Redirect: session.LoginPath})
	}
}
