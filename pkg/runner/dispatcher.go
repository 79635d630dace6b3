package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/pwplugin/pkg/types"
)

// Handler reacts to a lifecycle event.
type Handler func(ctx context.Context, event *types.Event) error

// Plugin subscribes handlers to a dispatcher.
type Plugin interface {
	Subscribe(d *Dispatcher)
}

// Dispatcher delivers events to the handlers listening for their type,
// in registration order.
type Dispatcher struct {
	handlers map[types.EventType][]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[types.EventType][]Handler)}
}

// Listen registers h for events of type t. It returns the dispatcher so
// registrations can be chained.
func (d *Dispatcher) Listen(t types.EventType, h Handler) *Dispatcher {
	d.handlers[t] = append(d.handlers[t], h)
	return d
}

// Register lets a plugin subscribe its handlers.
func (d *Dispatcher) Register(p Plugin) {
	p.Subscribe(d)
}

// Fire runs every handler for the event's type. Each handler runs to
// completion before the next one starts; all handlers run even if one fails.
func (d *Dispatcher) Fire(ctx context.Context, event *types.Event) error {
	var errs []error
	for _, h := range d.handlers[event.Type] {
		if err := h(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}
