package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pwplugin/pkg/types"
)

func TestScope_ReverseOrder(t *testing.T) {
	s := NewScope("scenario")
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		s.Defer(func() error {
			order = append(order, i)
			return nil
		})
	}
	assert.Empty(t, order)

	require.NoError(t, s.Close())
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestScope_ErrorsAndPanicsDoNotStopCleanup(t *testing.T) {
	s := NewScope("scenario")
	closed := false
	s.Defer(func() error {
		closed = true
		return nil
	})
	s.Defer(func() error { panic("tracing stop exploded") })
	s.Defer(func() error { return errors.New("context already closed") })

	err := s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context already closed")
	assert.Contains(t, err.Error(), "panicked")
	assert.True(t, closed)
}

func TestScope_CloseIsIdempotent(t *testing.T) {
	s := NewScope("scenario")
	calls := 0
	s.Defer(func() error {
		calls++
		return nil
	})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, calls)

	// Deferring after close runs immediately
	s.Defer(func() error {
		calls++
		return nil
	})
	assert.Equal(t, 2, calls)
}

func TestScope_Root(t *testing.T) {
	run := NewScope("run")
	scenario := run.Child("scenario")

	assert.Same(t, run, scenario.Root())
	assert.Same(t, run, run.Root())
}

func TestDispatcher_FireRunsAllHandlers(t *testing.T) {
	d := NewDispatcher()
	var calls []string
	d.Listen(types.EventTypeCleanup, func(context.Context, *types.Event) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	}).Listen(types.EventTypeCleanup, func(context.Context, *types.Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := d.Fire(context.Background(), types.NewCleanupEvent(&types.Report{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleanup handler: first failed")
	assert.Equal(t, []string{"first", "second"}, calls)

	// No handlers for this type
	assert.NoError(t, d.Fire(context.Background(), types.NewScenarioRunEvent(types.NewScenarioResult("a", "a", 1))))
}
