// Package identity authenticates CampusConnect users.
//
// A Provider creates password accounts, signs users in with a password or a
// federated (Google) credential, and notifies subscribers whenever a user
// signs in or out. Failures are *Error values carrying a provider code such
// as "auth/email-already-in-use"; callers map codes to messages or pass the
// message through unchanged.
package identity

import (
	"context"
	"errors"
	"sync"
)

// Provider codes.
const (
	CodeEmailAlreadyInUse   = "auth/email-already-in-use"
	CodeInvalidEmail        = "auth/invalid-email"
	CodeWeakPassword        = "auth/weak-password"
	CodeUserNotFound        = "auth/user-not-found"
	CodeWrongPassword       = "auth/wrong-password"
	CodeInvalidCredential   = "auth/invalid-credential"
	CodeOperationNotAllowed = "auth/operation-not-allowed"
	CodeInternal            = "auth/internal-error"
)

// Identity is an authenticated user as known to the provider.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Error is a provider failure with a machine readable code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message + " (" + e.Code + ")."
}

func newError(code, msg string) *Error {
	return &Error{Code: code, Message: "identity: " + msg}
}

// CodeOf extracts the provider code from err, or "" if err is not an *Error.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// AuthState is a change of authentication session. User is nil on sign-out.
type AuthState struct {
	UID  string
	User *Identity
}

// Provider is the identity backend consumed by the controllers.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignInFederated(ctx context.Context, credential string) (Identity, error)
	SignOut(ctx context.Context, uid string) error
	User(ctx context.Context, uid string) (Identity, error)
	OnAuthStateChanged(fn func(AuthState)) (unsubscribe func())
}

// Listeners fans auth state changes out to subscribers.
type Listeners struct {
	mu   sync.RWMutex
	next uint64
	fns  map[uint64]func(AuthState)
}

// Add registers fn and returns a function that removes it.
func (l *Listeners) Add(fn func(AuthState)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[uint64]func(AuthState))
	}
	l.next++
	id := l.next
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

// Emit calls every listener synchronously.
func (l *Listeners) Emit(st AuthState) {
	l.mu.RLock()
	fns := make([]func(AuthState), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(st)
	}
}
