// SPDX-License-Identifier: MPL-2.0

// Package activator maps the activator type names declared in plug-in
// manifests to compiled-in factories.
//
// Plug-in code registers its activators during init:
//
//	func init() {
//		activator.MustRegister("org.motoi.core", "core.Activator", func() (activator.Activator, error) {
//			return &coreActivator{}, nil
//		})
//	}
//
// The module half of the key is the plug-in's bundle name. The type half is
// the manifest's activator value with path separators normalized to dots.
package activator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	// ErrDuplicate is returned when a (module, type) pair is registered twice.
	ErrDuplicate = errors.New("activator already registered")
	// ErrInvalid is returned for empty names or a nil factory.
	ErrInvalid = errors.New("invalid activator registration")

	// Default is the process-wide registry used by init-time registration.
	Default = NewRegistry()
)

type (
	// Activator runs a plug-in's start-up code.
	Activator interface {
		Activate(ctx *Context) error
	}

	// Func adapts a plain function to Activator.
	Func func(ctx *Context) error

	// Factory constructs a fresh Activator.
	Factory func() (Activator, error)

	// Descriptor identifies the plug-in being activated.
	Descriptor struct {
		Name         string
		SymbolicName string
		Version      string
		Vendor       string
		Bundle       string
	}

	// Context is passed to Activate.
	Context struct {
		context.Context
		Plugin Descriptor
		Logger *log.Logger
	}

	// Registry maps (module, type) keys to factories. It is safe for
	// concurrent use.
	Registry struct {
		mu        sync.RWMutex
		factories map[key]Factory
	}

	key struct {
		module   string
		typeName string
	}
)

// Activate implements Activator.
func (f Func) Activate(ctx *Context) error { return f(ctx) }

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[key]Factory)}
}

// NormalizeType converts path separators in an activator name to dots.
func NormalizeType(typeName string) string {
	return strings.NewReplacer("/", ".", `\`, ".").Replace(strings.TrimSpace(typeName))
}

func makeKey(module, typeName string) key {
	return key{
		module:   strings.ToLower(strings.TrimSpace(module)),
		typeName: NormalizeType(typeName),
	}
}

// Register adds a factory for typeName within module.
func (r *Registry) Register(module, typeName string, f Factory) error {
	k := makeKey(module, typeName)
	if k.module == "" || k.typeName == "" || f == nil {
		return fmt.Errorf("%w: module=%q type=%q", ErrInvalid, module, typeName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[k]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicate, module, typeName)
	}
	r.factories[k] = f
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(module, typeName string, f Factory) {
	if err := r.Register(module, typeName, f); err != nil {
		panic(err)
	}
}

// Lookup returns the factory for typeName within module. Module matching
// ignores case; type names match exactly after normalization.
func (r *Registry) Lookup(module, typeName string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[makeKey(module, typeName)]
	return f, ok
}

// Types returns the sorted type names registered for module.
func (r *Registry) Types(module string) []string {
	module = strings.ToLower(strings.TrimSpace(module))

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for k := range r.factories {
		if k.module == module {
			out = append(out, k.typeName)
		}
	}
	slices.Sort(out)
	return out
}

// Register adds a factory to the Default registry.
func Register(module, typeName string, f Factory) error {
	return Default.Register(module, typeName, f)
}

// MustRegister adds a factory to the Default registry and panics on error.
func MustRegister(module, typeName string, f Factory) {
	Default.MustRegister(module, typeName, f)
}
