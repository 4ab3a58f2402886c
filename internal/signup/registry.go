package signup

import (
	"context"
	"time"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/utils"
	"github.com/devink/campusconnect/store/ephemeral"
	"github.com/google/uuid"
)

// Launcher runs background work; *manager.WorkManager's SubmitLookup fits.
type Launcher func(fn func(ctx context.Context)) error

// Registry keeps mounted forms until they succeed or expire.
type Registry struct {
	deps   Deps
	ttl    time.Duration
	forms  *ephemeral.Store[*Controller]
	launch Launcher
}

// NewRegistry creates a registry whose forms expire ttl after their last use.
func NewRegistry(deps Deps, ttl time.Duration, launch Launcher) *Registry {
	return &Registry{
		deps: deps,
		ttl:  ttl,
		forms: ephemeral.New[*Controller](ephemeral.WithEvict[*Controller](func(id string, _ *Controller) {
			logging.DebugLog("Signup form [%s] expired", utils.HashID(id))
		})),
		launch: launch,
	}
}

// Create mounts a new form and starts its single city lookup.
func (r *Registry) Create() (*Controller, error) {
	c := New(uuid.NewString(), r.deps)
	if err := r.forms.Set(c.ID(), c, r.ttl); err != nil {
		return nil, err
	}

	load := func(ctx context.Context) { c.LoadCities(ctx) }
	if r.launch == nil || r.launch(load) != nil {
		go load(context.Background())
	}
	return c, nil
}

// Get returns a live form and extends its lifetime.
func (r *Registry) Get(id string) (*Controller, error) {
	c, ok := r.forms.Get(id)
	if !ok {
		return nil, ErrFormNotFound
	}
	r.forms.Touch(id, r.ttl)
	return c, nil
}

// Discard drops a form, e.g. after a successful signup.
func (r *Registry) Discard(id string) {
	r.forms.Delete(id)
}

// Len returns the number of stored forms.
func (r *Registry) Len() int {
	return r.forms.Len()
}

// Close stops background cleanup.
func (r *Registry) Close() {
	r.forms.Close()
}
