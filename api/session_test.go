package api_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/devink/campusconnect/internal/models"
)

func TestLogin(t *testing.T) {
	env := setup(t)
	signupUser(t, env, "anna@example.com")

	resp := env.do(t, http.MethodPost, "/login", "", models.LoginRequest{Email: "anna@example.com", Password: "Secret1!"})
	expectStatus(t, resp, http.StatusOK)
	auth := decode[models.AuthResponse](t, resp)
	if auth.Token == "" || auth.Redirect != "/success?type=login" {
		t.Errorf("unexpected login response %+v", auth)
	}
}

func TestLoginErrorPassesThrough(t *testing.T) {
	env := setup(t)
	signupUser(t, env, "anna@example.com")

	tests := []struct {
		name string
		req  models.LoginRequest
		code string
	}{
		{"wrong password", models.LoginRequest{Email: "anna@example.com", Password: "nope"}, "auth/wrong-password"},
		{"unknown user", models.LoginRequest{Email: "ghost@example.com", Password: "Secret1!"}, "auth/user-not-found"},
		{"bad email", models.LoginRequest{Email: "ghost", Password: "Secret1!"}, "auth/invalid-email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/login", "", tt.req)
			expectStatus(t, resp, http.StatusUnauthorized)
			if out := decode[models.ErrorResponse](t, resp); !strings.Contains(out.Error, tt.code) {
				t.Errorf("expected raw provider error with %s, got %q", tt.code, out.Error)
			}
		})
	}
}

func TestGateRedirectsWithoutSession(t *testing.T) {
	env := setup(t)
	for _, token := range []string{"", "garbage"} {
		resp := env.do(t, http.MethodGet, "/me", token, nil)
		expectStatus(t, resp, http.StatusUnauthorized)
		if loc := resp.Header.Get("Location"); loc != "/login" {
			t.Errorf("expected Location /login, got %q", loc)
		}
		if out := decode[models.ErrorResponse](t, resp); out.Redirect != "/login" {
			t.Errorf("expected redirect /login, got %q", out.Redirect)
		}
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setup(t)
	auth := signupUser(t, env, "anna@example.com")

	resp := env.do(t, http.MethodPost, "/logout", auth.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	if out := decode[models.StatusResponse](t, resp); out.Redirect != "/login" {
		t.Errorf("expected redirect to login, got %+v", out)
	}

	resp = env.do(t, http.MethodGet, "/me", auth.Token, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestMeWithoutProfileUsesIdentity(t *testing.T) {
	env := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ident, err := env.client.Identity.CreateAccount(ctx, "bare@example.com", "Secret1!")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	token, _, err := env.client.Tokens.Issue(ident.UID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/me", token, nil)
	expectStatus(t, resp, http.StatusOK)
	me := decode[models.Me](t, resp)
	if me.Profile != nil || me.Email != "bare@example.com" {
		t.Errorf("expected raw identity fields only, got %+v", me)
	}
}
