package signup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devink/campusconnect/internal/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	cities := &fakeCities{}
	deps := Deps{Cities: cities, Universities: directory.DefaultUniversities()}

	launched := 0
	r := NewRegistry(deps, time.Minute, func(fn func(ctx context.Context)) error {
		launched++
		fn(context.Background())
		return nil
	})
	defer r.Close()

	c, err := r.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, launched)
	assert.False(t, c.Snapshot().CitiesLoading)

	got, err := r.Get(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.Equal(t, 1, r.Len())

	r.Discard(c.ID())
	_, err = r.Get(c.ID())
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestRegistryFallsBackToGoroutine(t *testing.T) {
	cities := &fakeCities{}
	deps := Deps{Cities: cities, Universities: directory.DefaultUniversities()}
	r := NewRegistry(deps, time.Minute, func(func(ctx context.Context)) error {
		return errors.New("queue full")
	})
	defer r.Close()

	c, err := r.Create()
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !c.Snapshot().CitiesLoading }, time.Second, 5*time.Millisecond)
}
