package enrich

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Registry maps effect names to effects. Built-ins are loaded lazily on
// first use through the default loader. A Registry is meant to be filled at
// startup; it does no locking.
type Registry struct {
	effects map[string]Effect
	order   []string // registration order for listing
	loader  func(*Registry) error
	loaded  bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDefaultLoader replaces LoadBuiltins as the lazy loader. A nil loader
// leaves the registry empty until effects are registered.
func WithDefaultLoader(fn func(*Registry) error) RegistryOption {
	return func(r *Registry) { r.loader = fn }
}

// NewRegistry creates a registry that loads the built-in effects on first
// access.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		effects: make(map[string]Effect),
		loader:  LoadBuiltins,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register stores e under name, replacing any effect already there,
// including a built-in. Effects that are nil or incomplete are rejected.
func (r *Registry) Register(name string, e Effect) error {
	if err := r.ensureLoaded(); err != nil {
		return err
	}
	return r.register(name, e)
}

func (r *Registry) register(name string, e Effect) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return eris.Wrap(ErrInvalidEffect, "effect name is empty")
	}
	if e == nil {
		return eris.Wrapf(ErrInvalidEffect, "effect %q is nil", name)
	}
	if c, ok := e.(checker); ok {
		if err := c.check(); err != nil {
			return eris.Wrapf(ErrInvalidEffect, "effect %q: %v", name, err)
		}
	}
	if _, exists := r.effects[name]; !exists {
		r.order = append(r.order, name)
	}
	r.effects[name] = e
	return nil
}

// Get returns the effect registered under name.
func (r *Registry) Get(name string) (Effect, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	e, ok := r.effects[name]
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "effect %q not registered, available: [%s]",
			name, strings.Join(r.order, ", "))
	}
	return e, nil
}

// List returns all effect names in registration order.
func (r *Registry) List() ([]string, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	return slices.Clone(r.order), nil
}

// Clear removes every effect and re-arms the lazy loader, so built-ins come
// back on next access.
func (r *Registry) Clear() {
	r.effects = make(map[string]Effect)
	r.order = nil
	r.loaded = false
}

func (r *Registry) ensureLoaded() error {
	if r.loaded {
		return nil
	}
	r.loaded = true
	if r.loader == nil {
		return nil
	}
	if err := r.loader(r); err != nil {
		r.loaded = false
		return eris.Wrap(err, "enrich: load built-in effects")
	}
	return nil
}
