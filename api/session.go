package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/devink/campusconnect/internal/identity"
	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/internal/session"
)

// UserLookup resolves a session's uid to its identity.
type UserLookup interface {
	User(ctx context.Context, uid string) (identity.Identity, error)
}

// RequireSession lets a request through only when it carries a live session
// token; otherwise it answers 401 with the login redirect.
func RequireSession(gate *session.Gate, tokens TokenIssuer, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var ident *identity.Identity
			sess, err := tokens.Verify(bearerToken(r))
			if err == nil {
				if u, err := users.User(r.Context(), sess.UID); err == nil {
					ident = &u
				}
			}

			d := gate.Resolve(r.Context(), ident)
			if d.Redirect != "" {
				w.Header().Set("Location", d.Redirect)
				respondJSON(w, http.StatusUnauthorized, models.ErrorResponse{
					Error:    "Authentication required",
					Redirect: d.Redirect,
				})
				return
			}

			ctx := session.WithCurrent(r.Context(), session.Current{Session: sess, Me: d.Me})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the Authorization header, or ?access_token= for
// websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cur, _ := session.FromContext(r.Context())
		respondJSON(w, http.StatusOK, cur.Me)
	}
}
