package runner

import (
	"errors"
	"fmt"
)

// Scope is a stack of cleanup callbacks. Callbacks registered with Defer run
// in reverse registration order when the scope closes. The runner opens one
// scope for the whole run and one per scenario execution.
type Scope struct {
	name   string
	parent *Scope
	fns    []func() error
	closed bool
}

// NewScope creates a root scope.
func NewScope(name string) *Scope {
	return &Scope{name: name}
}

// Child creates a scope whose Root is the root of s.
func (s *Scope) Child(name string) *Scope {
	return &Scope{name: name, parent: s}
}

// Root returns the outermost scope, i.e. the run scope.
func (s *Scope) Root() *Scope {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Defer registers fn to run when the scope closes. Deferring on a closed
// scope runs fn immediately.
func (s *Scope) Defer(fn func() error) {
	if s.closed {
		if err := fn(); err != nil {
			debugLog.Warnf("deferred callback on closed scope %q failed: %v", s.name, err)
		}
		return
	}
	s.fns = append(s.fns, fn)
}

// Close runs every pending callback in reverse order. A failing or panicking
// callback does not stop the remaining ones; their errors are joined.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.fns) - 1; i >= 0; i-- {
		if err := runDeferred(s.fns[i]); err != nil {
			errs = append(errs, err)
		}
	}
	s.fns = nil
	return errors.Join(errs...)
}

func runDeferred(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deferred callback panicked: %v", r)
		}
	}()
	return fn()
}
