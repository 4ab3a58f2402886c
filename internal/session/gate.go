// Package session decides what an authentication state means for the home
// view: no identity redirects to login, an identity is enriched with its
// stored profile when one can be read.
package session

import (
	"context"
	"errors"

	"github.com/devink/campusconnect/internal/identity"
	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/internal/utils"
	"github.com/devink/campusconnect/store"
)

// LoginPath is where unauthenticated sessions are sent.
const LoginPath = "/login"

// ProfileReader reads AccountProfile documents.
type ProfileReader interface {
	Get(ctx context.Context, collection, id string) (store.Document, error)
}

// AuthSource notifies about sign-in and sign-out.
type AuthSource interface {
	OnAuthStateChanged(fn func(identity.AuthState)) (unsubscribe func())
}

// Decision is either a redirect or the signed-in user.
type Decision struct {
	Redirect string
	Me       *models.Me
}

// Gate resolves authentication states.
type Gate struct {
	profiles ProfileReader
}

// NewGate creates a gate reading profiles from profiles.
func NewGate(profiles ProfileReader) *Gate {
	return &Gate{profiles: profiles}
}

// Resolve maps an identity (nil when signed out) to a decision. A signed out
// state never touches the profile store. A missing or unreadable profile
// leaves only the raw identity fields set.
func (g *Gate) Resolve(ctx context.Context, ident *identity.Identity) Decision {
	if ident == nil {
		return Decision{Redirect: LoginPath}
	}

	me := &models.Me{
		UID:         ident.UID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		PhotoURL:    ident.PhotoURL,
	}

	doc, err := g.profiles.Get(ctx, models.UsersCollection, ident.UID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		logging.DebugLog("Session: no profile uid=[%s]", utils.HashID(ident.UID))
	case err != nil:
		logging.ErrorLog("Session: profile read failed uid=[%s]: %v", utils.HashID(ident.UID), err)
	default:
		var p models.AccountProfile
		if err := store.Decode(doc, &p); err != nil {
			logging.ErrorLog("Session: profile decode failed uid=[%s]: %v", utils.HashID(ident.UID), err)
		} else {
			me.Profile = &p
		}
	}
	return Decision{Me: me}
}

// Watch calls fn with a fresh decision on every auth state change until the
// returned function is called.
func (g *Gate) Watch(src AuthSource, fn func(identity.AuthState, Decision)) (stop func()) {
	return src.OnAuthStateChanged(func(st identity.AuthState) {
		fn(st, g.Resolve(context.Background(), st.User))
	})
}
