// Package signup implements the signup form: field state, password policy
// feedback, city and university lookups, and the submit state machine that
// creates the account and writes its profile.
package signup

import (
	"context"
	"sync"
	"time"

	"github.com/devink/campusconnect/internal/confirmation"
	"github.com/devink/campusconnect/internal/directory"
	"github.com/devink/campusconnect/internal/identity"
	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/internal/password"
	"github.com/devink/campusconnect/internal/utils"
	"github.com/devink/campusconnect/store"
	"golang.org/x/sync/singleflight"
)

// Accounts is the part of the identity provider a signup needs.
type Accounts interface {
	CreateAccount(ctx context.Context, email, password string) (identity.Identity, error)
	SignInFederated(ctx context.Context, credential string) (identity.Identity, error)
}

// ProfileWriter persists AccountProfile documents.
type ProfileWriter interface {
	Set(ctx context.Context, collection, id string, fields store.Fields) error
}

// UniversityLister returns the universities of a city; empty means free text.
type UniversityLister interface {
	For(city string) []string
}

// Deps are the collaborators of a form.
type Deps struct {
	Accounts     Accounts
	Profiles     ProfileWriter
	Cities       directory.CityLister
	Universities UniversityLister
	// OnSignup runs after a successful signup, e.g. to queue a welcome mail.
	OnSignup func(ctx context.Context, uid string, profile models.AccountProfile)
	// OnResult receives a metrics label for every finished submission.
	OnResult func(result string)
	// RedirectDelay is the pause between a password signup and the redirect.
	RedirectDelay time.Duration
}

// Outcome is the result of a submission.
type Outcome struct {
	State    State
	Error    string
	Identity identity.Identity
	Redirect string
}

// Controller is one mounted signup form.
type Controller struct {
	id   string
	deps Deps

	mu            sync.Mutex
	fields        Fields
	requirements  password.Requirements
	cities        []string
	citiesLoading bool
	citySource    directory.Source
	universities  []string
	state         State
	errMsg        string
	success       *Outcome

	loadOnce sync.Once
	flight   singleflight.Group
}

// New creates a form in the Editing state.
func New(id string, deps Deps) *Controller {
	return &Controller{
		id:            id,
		deps:          deps,
		requirements:  password.Evaluate(""),
		cities:        []string{},
		citiesLoading: true,
		universities:  []string{},
		state:         Editing,
	}
}

// ID returns the form id.
func (c *Controller) ID() string { return c.id }

// LoadCities runs the city lookup. Only the first call per form does any work.
func (c *Controller) LoadCities(ctx context.Context) {
	c.loadOnce.Do(func() {
		cities, src := c.deps.Cities.Cities(ctx)
		c.mu.Lock()
		c.cities = cities
		c.citySource = src
		c.citiesLoading = false
		c.mu.Unlock()
		logging.DebugLog("Signup form [%s]: %d cities loaded from %s", utils.HashID(c.id), len(cities), src)
	})
}

// Update applies a field edit. Editing a failed form clears its error.
func (c *Controller) Update(e Edit) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Succeeded {
		return ErrFormClosed
	}

	if e.FirstName != nil {
		c.fields.FirstName = *e.FirstName
	}
	if e.LastName != nil {
		c.fields.LastName = *e.LastName
	}
	if e.Email != nil {
		c.fields.Email = *e.Email
	}
	if e.Password != nil {
		c.fields.Password = *e.Password
		c.requirements = password.Evaluate(c.fields.Password)
	}
	if e.City != nil && *e.City != c.fields.City {
		c.fields.City = *e.City
		c.fields.University = ""
		c.universities = c.deps.Universities.For(c.fields.City)
	}
	if e.University != nil {
		c.fields.University = *e.University
	}

	if c.state == Failed {
		c.state = Editing
		c.errMsg = ""
	}
	return nil
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ID:                 c.id,
		FirstName:          c.fields.FirstName,
		LastName:           c.fields.LastName,
		Email:              c.fields.Email,
		City:               c.fields.City,
		University:         c.fields.University,
		Requirements:       c.requirements,
		Cities:             append([]string{}, c.cities...),
		CitiesLoading:      c.citiesLoading,
		CitySource:         c.citySource,
		Universities:       append([]string{}, c.universities...),
		FreeTextUniversity: c.fields.City != "" && len(c.universities) == 0,
		State:              c.state.String(),
		Submitting:         c.state == Submitting,
		Error:              c.errMsg,
	}
}

// submitKey is shared by both submit paths so a form never has more than one
// account creation in flight.
const submitKey = "submit"

// Submit validates the form and, if valid, creates the account and writes the
// profile. Concurrent calls share a single in-flight submission. On success it
// waits for the redirect delay (or until ctx is done) before returning.
func (c *Controller) Submit(ctx context.Context) Outcome {
	v, _, _ := c.flight.Do(submitKey, func() (interface{}, error) {
		return c.submit(ctx), nil
	})
	out := v.(Outcome)
	if out.State == Succeeded && c.deps.RedirectDelay > 0 {
		t := time.NewTimer(c.deps.RedirectDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
	return out
}

func (c *Controller) submit(ctx context.Context) Outcome {
	formHash := utils.HashID(c.id)

	c.mu.Lock()
	if c.success != nil {
		out := *c.success
		c.mu.Unlock()
		return out
	}
	c.errMsg = ""
	c.state = Validating
	fields := c.fields
	if !Valid(fields, c.requirements) {
		c.state = Failed
		c.errMsg = MsgInvalidForm
		c.mu.Unlock()
		c.report(ResultInvalid)
		return Outcome{State: Failed, Error: MsgInvalidForm}
	}
	c.state = Submitting
	c.mu.Unlock()

	ident, err := c.deps.Accounts.CreateAccount(ctx, fields.Email, fields.Password)
	if err != nil {
		logging.WarnLog("Signup form [%s]: account creation failed: %v", formHash, err)
		return c.fail(mapCreateError(err))
	}

	profile := models.AccountProfile{
		Email:      ident.Email,
		FirstName:  fields.FirstName,
		LastName:   fields.LastName,
		City:       fields.City,
		University: fields.University,
	}
	if err := c.writeProfile(ctx, ident.UID, profile); err != nil {
		logging.ErrorLog("Signup form [%s]: profile write failed uid=[%s]: %v", formHash, utils.HashID(ident.UID), err)
		return c.fail(mapCreateError(err))
	}

	logging.InfoLog("Signup form [%s]: account created uid=[%s]", formHash, utils.HashID(ident.UID))
	return c.succeed(ctx, ident, profile)
}

// SubmitFederated signs up with a Google credential. Password rules do not
// apply; an unset city or university is stored as models.NotSpecified. A call
// made while a password submit is in flight joins it instead of starting a
// second signup.
func (c *Controller) SubmitFederated(ctx context.Context, credential string) Outcome {
	v, _, _ := c.flight.Do(submitKey, func() (interface{}, error) {
		return c.submitFederated(ctx, credential), nil
	})
	return v.(Outcome)
}

func (c *Controller) submitFederated(ctx context.Context, credential string) Outcome {
	c.mu.Lock()
	if c.success != nil {
		out := *c.success
		c.mu.Unlock()
		return out
	}
	c.errMsg = ""
	c.state = Submitting
	city, university := c.fields.City, c.fields.University
	c.mu.Unlock()

	ident, err := c.deps.Accounts.SignInFederated(ctx, credential)
	if err != nil {
		return c.fail(err.Error(), ResultError)
	}

	first, last := splitDisplayName(ident.DisplayName)
	if city == "" {
		city = models.NotSpecified
	}
	if university == "" {
		university = models.NotSpecified
	}
	profile := models.AccountProfile{
		Email:      ident.Email,
		FirstName:  first,
		LastName:   last,
		City:       city,
		University: university,
		PhotoURL:   ident.PhotoURL,
	}
	if err := c.writeProfile(ctx, ident.UID, profile); err != nil {
		logging.ErrorLog("Signup form [%s]: federated profile write failed: %v", utils.HashID(c.id), err)
		return c.fail(err.Error(), ResultError)
	}
	return c.succeed(ctx, ident, profile)
}

func (c *Controller) writeProfile(ctx context.Context, uid string, p models.AccountProfile) error {
	fields := store.Fields{
		"email":      p.Email,
		"firstName":  p.FirstName,
		"lastName":   p.LastName,
		"city":       p.City,
		"university": p.University,
		"createdAt":  store.ServerTimestamp,
	}
	if p.PhotoURL != "" {
		fields["photoURL"] = p.PhotoURL
	}
	return c.deps.Profiles.Set(ctx, models.UsersCollection, uid, fields)
}

func (c *Controller) fail(msg, result string) Outcome {
	c.mu.Lock()
	c.state = Failed
	c.errMsg = msg
	c.mu.Unlock()
	c.report(result)
	return Outcome{State: Failed, Error: msg}
}

func (c *Controller) succeed(ctx context.Context, ident identity.Identity, profile models.AccountProfile) Outcome {
	out := Outcome{
		State:    Succeeded,
		Identity: ident,
		Redirect: confirmation.Path(confirmation.Signup),
	}
	c.mu.Lock()
	if c.success != nil {
		prev := *c.success
		c.mu.Unlock()
		logging.WarnLog("Signup form [%s]: second signup uid=[%s] ignored", utils.HashID(c.id), utils.HashID(ident.UID))
		return prev
	}
	c.state = Succeeded
	c.errMsg = ""
	c.success = &out
	c.mu.Unlock()

	c.report(ResultSucceeded)
	if c.deps.OnSignup != nil {
		c.deps.OnSignup(ctx, ident.UID, profile)
	}
	return out
}

func (c *Controller) report(result string) {
	if c.deps.OnResult != nil {
		c.deps.OnResult(result)
	}
}
