// Package login handles credential and Google sign-in. Provider errors are
// shown to the user unmodified.
package login

import (
	"context"
	"time"

	"github.com/devink/campusconnect/internal/confirmation"
	"github.com/devink/campusconnect/internal/identity"
	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/utils"
)

// Result labels used for metrics.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
)

// Authenticator is the part of the identity provider a login needs.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (identity.Identity, error)
	SignInFederated(ctx context.Context, credential string) (identity.Identity, error)
}

// Outcome is the result of a login attempt. Error is empty on success.
type Outcome struct {
	Identity identity.Identity
	Error    string
	Redirect string
}

// OK reports whether the attempt succeeded.
func (o Outcome) OK() bool { return o.Error == "" }

// Controller runs login attempts.
type Controller struct {
	auth     Authenticator
	delay    time.Duration
	onResult func(method, result string)
}

// Option configures a Controller.
type Option func(*Controller)

// WithRedirectDelay sets the pause between a password login and the redirect.
func WithRedirectDelay(d time.Duration) Option { return func(c *Controller) { c.delay = d } }

// WithResultHook receives ("password"|"google", result) for every attempt.
func WithResultHook(fn func(method, result string)) Option {
	return func(c *Controller) { c.onResult = fn }
}

// New creates a controller with a one second redirect delay.
func New(auth Authenticator, opts ...Option) *Controller {
	c := &Controller{auth: auth, delay: time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit signs in with email and password. On success it waits for the
// redirect delay (or until ctx is done) before returning.
func (c *Controller) Submit(ctx context.Context, email, password string) Outcome {
	ident, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		logging.WarnLog("Login failed [%s]: %v", utils.HashEmail(email), err)
		c.report("password", ResultFailed)
		return Outcome{Error: err.Error()}
	}

	logging.InfoLog("Login succeeded uid=[%s]", utils.HashID(ident.UID))
	c.report("password", ResultSucceeded)

	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
	return Outcome{Identity: ident, Redirect: confirmation.Path(confirmation.Login)}
}

// SubmitFederated signs in with a Google ID token and redirects immediately.
func (c *Controller) SubmitFederated(ctx context.Context, credential string) Outcome {
	ident, err := c.auth.SignInFederated(ctx, credential)
	if err != nil {
		logging.WarnLog("Federated login failed: %v", err)
		c.report("google", ResultFailed)
		return Outcome{Error: err.Error()}
	}
	c.report("google", ResultSucceeded)
	return Outcome{Identity: ident, Redirect: confirmation.Path(confirmation.Login)}
}

func (c *Controller) report(method, result string) {
	if c.onResult != nil {
		c.onResult(method, result)
	}
}
