// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"io"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/motoi/motoi/pkg/bundle"
)

// IncludesPrefix is the archive directory holding shared module payloads.
const IncludesPrefix = "includes/"

type (
	// ProvidedFunc returns the bundles of the currently provided plug-ins in
	// provision order.
	ProvidedFunc func() []*bundle.Bundle

	// Include maps a module file name to the archive entry it is loaded from.
	Include struct {
		File   string
		Bundle *bundle.Bundle
		Path   string
	}

	// Resolver loads modules on demand from provided plug-ins. Every module
	// name is loaded at most once until Reset. It is safe for concurrent use.
	// A Loader may call Resolve for a different name while loading; resolving
	// the name being loaded, or closing a cycle of nested loads, deadlocks.
	Resolver struct {
		provided ProvidedFunc
		loader   Loader
		logger   *log.Logger

		mu       sync.Mutex
		gen      uint64
		cache    map[string]*Module
		includes map[string]Include

		flights singleflight.Group
	}

	// ResolverOption configures a Resolver.
	ResolverOption func(*Resolver)
)

// WithLoader replaces the PayloadLoader.
func WithLoader(l Loader) ResolverOption {
	return func(r *Resolver) { r.loader = l }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver returns a resolver over the bundles returned by provided.
func NewResolver(provided ProvidedFunc, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		provided: provided,
		loader:   PayloadLoader{},
		logger:   log.New(io.Discard),
		cache:    make(map[string]*Module),
		includes: make(map[string]Include),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.provided == nil {
		r.provided = func() []*bundle.Bundle { return nil }
	}
	return r
}

// AddInclude registers the archive entry entryPath of b under its base file
// name. The first registration of a file name wins; AddInclude reports
// whether this one was kept.
func (r *Resolver) AddInclude(b *bundle.Bundle, entryPath string) bool {
	file := path.Base(entryPath)
	k := strings.ToLower(file)

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, exists := r.includes[k]; exists {
		r.logger.Debug("duplicate include ignored", "file", file, "archive", b.Path(), "kept", prev.Bundle.Path())
		return false
	}
	r.includes[k] = Include{File: file, Bundle: b, Path: entryPath}
	return true
}

// Includes returns the include table sorted by file name.
func (r *Resolver) Includes() []Include {
	r.mu.Lock()
	out := make([]Include, 0, len(r.includes))
	for _, inc := range r.includes {
		out = append(out, inc)
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b Include) int { return strings.Compare(a.File, b.File) })
	return out
}

// Cached returns the loaded module for name without triggering a load.
func (r *Resolver) Cached(name string) (*Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.cache[key(name)]
	return m, ok
}

// Reset drops every loaded module and include mapping. Loads still in
// flight when Reset is called are not cached.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	clear(r.cache)
	clear(r.includes)
}

// Resolve returns the module named name, loading it on first use. It returns
// nil when no provided plug-in carries the module or when its payload cannot
// be read or loaded.
func (r *Resolver) Resolve(name string) *Module {
	k := key(name)
	if k == "" {
		return nil
	}

	r.mu.Lock()
	if m, ok := r.cache[k]; ok {
		r.mu.Unlock()
		return m
	}
	r.mu.Unlock()

	v, _, _ := r.flights.Do(k, func() (any, error) {
		return r.load(k, Normalize(name)), nil
	})
	m, _ := v.(*Module)
	return m
}

// load runs inside the flight for k.
func (r *Resolver) load(k, name string) *Module {
	r.mu.Lock()
	if m, ok := r.cache[k]; ok {
		r.mu.Unlock()
		return m
	}
	gen := r.gen
	inc, fromInclude := r.includes[k+ModuleExtension]
	r.mu.Unlock()

	var (
		b     *bundle.Bundle
		entry string
	)
	if fromInclude {
		b, entry = inc.Bundle, inc.Path
	} else {
		for _, candidate := range r.provided() {
			if strings.EqualFold(candidate.Name(), name) {
				b, entry = candidate, candidate.Name()+ModuleExtension
				break
			}
		}
	}
	if b == nil {
		r.logger.Debug("module not found", "module", name)
		return nil
	}

	origin := b.Path() + "!" + entry
	payload, err := b.ReadAll(entry)
	if err != nil {
		r.logger.Debug("module read failed", "module", name, "origin", origin, "error", err)
		return nil
	}
	m, err := r.loader.Load(name, origin, payload)
	if err != nil || m == nil {
		r.logger.Debug("module load failed", "module", name, "origin", origin, "error", err)
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return m
	}
	if prev, ok := r.cache[k]; ok {
		return prev
	}
	r.cache[k] = m
	r.logger.Debug("module loaded", "module", name, "origin", origin, "digest", m.Digest)
	return m
}
