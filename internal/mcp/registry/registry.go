package registry

import (
	"codelens/internal/mcp/contracts"
	"context"
	"fmt"
	"sync"
)

// Handler runs one operation against its decoded input.
type Handler func(ctx context.Context, input any) (any, error)

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []string
}

func New() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		order:    make([]string, 0),
	}
}

func (r *Registry) Register(operation string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	if operation == "" {
		return fmt.Errorf("operation name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[operation]; exists {
		return fmt.Errorf("operation already registered: %s", operation)
	}
	r.handlers[operation] = handler
	r.order = append(r.order, operation)
	return nil
}

// Bind registers a handler taking the concrete request type that validation
// decodes for operation.
func Bind[In, Out any](r *Registry, operation string, fn func(ctx context.Context, input In) (Out, error)) error {
	if fn == nil {
		return fmt.Errorf("handler is required")
	}
	return r.Register(operation, func(ctx context.Context, input any) (any, error) {
		typed, ok := input.(In)
		if !ok {
			return nil, contracts.InvalidArgument(
				fmt.Sprintf("unexpected input %T for %s", input, operation), nil)
		}
		return fn(ctx, typed)
	})
}

func (r *Registry) HandlerFor(operation string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[operation]
	return h, ok
}

// Operations lists registered operations in registration order.
func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
