package extension

import (
	"context"
	"sync"
)

// Registry is the dispatch table the Sync Context consults for every
// EXT_* record: a name-keyed vtable of Handler implementations,
// registered once at startup before any sync pass begins.
//
// Thread Safety: Register and Lookup are guarded by an RWMutex, so
// both are safe to call concurrently with each other.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds name to handler, overwriting any prior binding.
func (r *Registry) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Lookup returns the Handler bound to name, or ErrUnknownExtension if
// none is registered.
func (r *Registry) Lookup(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, ErrUnknownExtension
	}
	return h, nil
}

// Dispatch is a convenience fan-in used by the Sync Context: it looks
// name up and, if found, forwards to fn; if not found, it reports
// ErrUnknownExtension so the caller can fall back to ignore mode
// (skipping the record) instead of treating it as corruption.
func (r *Registry) Dispatch(ctx context.Context, name string, fn func(context.Context, Handler) error) error {
	h, err := r.Lookup(name)
	if err != nil {
		return err
	}
	return fn(ctx, h)
}
