package dispatch

import "sort"

// Registry maps action names to handlers. It is built once at startup and
// read-only afterwards, so lookups need no locking.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry copies the given mapping into an immutable Registry.
func NewRegistry(handlers map[string]Handler) *Registry {
	m := make(map[string]Handler, len(handlers))
	for action, h := range handlers {
		m[action] = h
	}
	return &Registry{handlers: m}
}

// Lookup returns the handler registered for the action.
func (r *Registry) Lookup(action string) (Handler, bool) {
	h, ok := r.handlers[action]
	return h, ok
}

// Actions lists the registered action names in sorted order.
func (r *Registry) Actions() []string {
	actions := make([]string, 0, len(r.handlers))
	for a := range r.handlers {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions
}
