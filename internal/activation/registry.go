// Package activation creates the controller instances actions run on.
package activation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
)

// Constructor builds one controller instance for a request. Returning
// (nil, nil) means the controller cannot serve the request.
type Constructor func(ctx context.Context, ac *domain.ActionContext, vs *domain.ValidationState) (any, error)

// ConstructorError wraps a constructor failure.
type ConstructorError struct {
	Controller string
	Err        error
}

func (e *ConstructorError) Error() string {
	return fmt.Sprintf("construct controller %q: %v", e.Controller, e.Err)
}

func (e *ConstructorError) Unwrap() error { return e.Err }

// IsConstructorError reports whether err came from a controller constructor.
func IsConstructorError(err error) bool {
	var ce *ConstructorError
	return errors.As(err, &ce)
}

// Registry maps controller names to constructors. It implements
// ports.TargetFactory.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a constructor. Registering a name twice is an error.
func (r *Registry) Register(controller string, c Constructor) error {
	if controller == "" {
		return fmt.Errorf("controller name required")
	}
	if c == nil {
		return fmt.Errorf("controller %q: nil constructor", controller)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.constructors[controller]; exists {
		return fmt.Errorf("controller %q already registered", controller)
	}
	r.constructors[controller] = c
	return nil
}

// Singleton registers a controller that reuses one instance for every
// request.
func (r *Registry) Singleton(controller string, instance any) error {
	return r.Register(controller, func(context.Context, *domain.ActionContext, *domain.ValidationState) (any, error) {
		return instance, nil
	})
}

// Controllers returns the registered names, sorted.
func (r *Registry) Controllers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create implements ports.TargetFactory. Unknown controllers yield
// (nil, nil).
func (r *Registry) Create(ctx context.Context, ac *domain.ActionContext, vs *domain.ValidationState) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := ""
	if ac.Descriptor != nil {
		name = ac.Descriptor.Controller
	}

	r.mu.RLock()
	c, ok := r.constructors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	instance, err := c(ctx, ac, vs)
	if err != nil {
		return nil, &ConstructorError{Controller: name, Err: err}
	}
	return instance, nil
}
