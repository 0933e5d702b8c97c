// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/motoi/motoi/pkg/activator"
)

var (
	// ErrModuleNotFound is returned by Host.LoadModule when every lookup misses.
	ErrModuleNotFound = errors.New("module not found")
	// ErrTypeNotFound is returned by Host.ResolveType when every lookup misses.
	ErrTypeNotFound = errors.New("activator type not found")
)

type (
	// ModuleResolveFunc is a fallback consulted when the static link table
	// has no module of that name. It returns nil on a miss.
	ModuleResolveFunc func(name string) *Module

	// TypeResolveFunc is a fallback consulted when a type is not found in
	// the module it was requested from.
	TypeResolveFunc func(typeName string) (activator.Factory, bool)

	// Host resolves modules and activator types for the running process.
	Host struct {
		types *activator.Registry

		mu          sync.RWMutex
		static      map[string]*Module
		moduleHooks []*moduleHook
		typeHooks   []*typeHook
	}

	moduleHook struct{ fn ModuleResolveFunc }
	typeHook   struct{ fn TypeResolveFunc }

	// ModuleNotFoundError reports a module no lookup could satisfy.
	ModuleNotFoundError struct {
		Name string
	}

	// TypeNotFoundError reports an activator type no lookup could satisfy.
	TypeNotFoundError struct {
		Module string
		Type   string
		// Cause is the module lookup failure, if any.
		Cause error
	}
)

// NewHost returns a host resolving activator types through types. A nil
// registry means activator.Default.
func NewHost(types *activator.Registry) *Host {
	if types == nil {
		types = activator.Default
	}
	return &Host{
		types:  types,
		static: make(map[string]*Module),
	}
}

// Types returns the activator registry used by the host.
func (h *Host) Types() *activator.Registry { return h.types }

// Link adds a module to the static link table, replacing any module of the
// same name.
func (h *Host) Link(name string, payload []byte) *Module {
	m := static(name, payload)
	h.mu.Lock()
	h.static[key(name)] = m
	h.mu.Unlock()
	return m
}

// AddModuleResolver appends a module fallback. The returned function removes
// it and may be called more than once.
func (h *Host) AddModuleResolver(fn ModuleResolveFunc) (remove func()) {
	hook := &moduleHook{fn: fn}
	h.mu.Lock()
	h.moduleHooks = append(h.moduleHooks, hook)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.moduleHooks = slices.DeleteFunc(h.moduleHooks, func(x *moduleHook) bool { return x == hook })
	}
}

// AddTypeResolver appends a type fallback. The returned function removes it
// and may be called more than once.
func (h *Host) AddTypeResolver(fn TypeResolveFunc) (remove func()) {
	hook := &typeHook{fn: fn}
	h.mu.Lock()
	h.typeHooks = append(h.typeHooks, hook)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.typeHooks = slices.DeleteFunc(h.typeHooks, func(x *typeHook) bool { return x == hook })
	}
}

// Hooks reports the number of registered module and type fallbacks.
func (h *Host) Hooks() (modules, types int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.moduleHooks), len(h.typeHooks)
}

// LoadModule returns the module named name from the static table or, failing
// that, from the first fallback that knows it.
func (h *Host) LoadModule(name string) (*Module, error) {
	h.mu.RLock()
	m, ok := h.static[key(name)]
	hooks := slices.Clone(h.moduleHooks)
	h.mu.RUnlock()

	if ok {
		return m, nil
	}
	for _, hook := range hooks {
		if m := hook.fn(name); m != nil {
			return m, nil
		}
	}
	return nil, &ModuleNotFoundError{Name: Normalize(name)}
}

// ResolveType returns the factory for typeName declared in module. When the
// module cannot be loaded or does not register the type, the type fallbacks
// are asked in registration order.
func (h *Host) ResolveType(module, typeName string) (activator.Factory, error) {
	typeName = activator.NormalizeType(typeName)

	_, err := h.LoadModule(module)
	if err == nil {
		if f, ok := h.types.Lookup(Normalize(module), typeName); ok {
			return f, nil
		}
	}

	h.mu.RLock()
	hooks := slices.Clone(h.typeHooks)
	h.mu.RUnlock()
	for _, hook := range hooks {
		if f, ok := hook.fn(typeName); ok {
			return f, nil
		}
	}
	return nil, &TypeNotFoundError{Module: Normalize(module), Type: typeName, Cause: err}
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module %q not found", e.Name)
}

func (e *ModuleNotFoundError) Unwrap() error { return ErrModuleNotFound }

func (e *TypeNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("type %q not found in module %q: %v", e.Type, e.Module, e.Cause)
	}
	return fmt.Sprintf("type %q not found in module %q", e.Type, e.Module)
}

// Unwrap exposes ErrTypeNotFound and the module lookup failure.
func (e *TypeNotFoundError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrTypeNotFound, e.Cause}
	}
	return []error{ErrTypeNotFound}
}
