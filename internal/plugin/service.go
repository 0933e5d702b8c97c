// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/motoi/motoi/internal/linker"
	"github.com/motoi/motoi/pkg/bundle"
)

type (
	// Service owns the plug-in catalog of one process.
	Service struct {
		baseDir string
		reader  bundle.Reader
		host    *linker.Host
		logger  *log.Logger

		resolverOpts []linker.ResolverOption
		resolver     *linker.Resolver

		mu          sync.RWMutex
		started     bool
		found       []*Info
		provided    []*Info
		activated   []*Info
		removeHooks []func()

		listenersMu sync.Mutex
		listeners   []*listener
	}

	listener struct{ fn func() }

	// Option configures a Service.
	Option func(*Service)
)

// WithBaseDir sets the directory containing plug-ins/. The default is the
// working directory at the time Start runs.
func WithBaseDir(dir string) Option {
	return func(s *Service) { s.baseDir = dir }
}

// WithReader replaces the zip archive reader.
func WithReader(r bundle.Reader) Option {
	return func(s *Service) { s.reader = r }
}

// WithHost sets the host the service installs its fallbacks on.
func WithHost(h *linker.Host) Option {
	return func(s *Service) { s.host = h }
}

// WithLoader sets the module loader used by the cross-plug-in resolver.
func WithLoader(l linker.Loader) Option {
	return func(s *Service) { s.resolverOpts = append(s.resolverOpts, linker.WithLoader(l)) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New returns a stopped service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.reader == nil {
		s.reader = bundle.NewZipReader()
	}
	if s.host == nil {
		s.host = linker.NewHost(nil)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel, Prefix: "plugin"})
	}
	s.resolverOpts = append(s.resolverOpts, linker.WithLogger(s.logger))
	s.resolver = linker.NewResolver(s.providedBundles, s.resolverOpts...)
	return s
}

// Host returns the host the service is attached to.
func (s *Service) Host() *linker.Host { return s.host }

// Resolver returns the cross-plug-in module resolver.
func (s *Service) Resolver() *linker.Resolver { return s.resolver }

// Started reports whether Start has completed and Stop has not been called.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// PluginsDir returns the directory Start scans.
func (s *Service) PluginsDir() (string, error) {
	base := s.baseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		base = wd
	}
	return filepath.Join(base, PluginsDirName), nil
}

// Start discovers plug-ins, resolves their dependencies and installs the
// service's module fallback. Calling Start on a started service
// does nothing. When the plug-ins directory is missing Start returns a
// *DiscoveryError and the service stays stopped.
func (s *Service) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	dir, err := s.PluginsDir()
	if err != nil {
		return &DiscoveryError{Dir: PluginsDirName, Err: err}
	}
	if fi, statErr := os.Stat(dir); statErr != nil || !fi.IsDir() {
		cause := ErrPluginsDirNotFound
		if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
			cause = fmt.Errorf("%w: %w", ErrPluginsDirNotFound, statErr)
		}
		return &DiscoveryError{Dir: dir, Err: cause}
	}

	archives, err := listArchives(dir)
	if err != nil {
		return &DiscoveryError{Dir: dir, Err: err}
	}

	s.found = s.discover(archives)
	s.registerIncludes(s.found)
	s.provided = s.resolve(s.found)
	s.activated = nil

	s.removeHooks = []func(){
		s.host.AddModuleResolver(s.resolver.Resolve),
	}
	s.started = true

	s.logger.Info("plug-ins started", "dir", dir, "archives", len(archives), "found", len(s.found), "provided", len(s.provided))
	return nil
}

// Stop removes the service's fallback, drops every loaded module, closes
// all archives and clears the catalog, then notifies the stopped listeners.
// Stopping a stopped service does nothing. The returned error joins archive
// close failures.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}

	for _, remove := range s.removeHooks {
		remove()
	}
	s.removeHooks = nil
	s.resolver.Reset()

	var errs []error
	for _, p := range s.found {
		if err := p.Bundle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p.Bundle.Path(), err))
		}
	}
	s.found, s.provided, s.activated = nil, nil, nil
	s.started = false
	s.mu.Unlock()

	s.logger.Info("plug-ins stopped")
	s.notifyStopped()
	return errors.Join(errs...)
}

// OnStopped registers fn to run after every Stop that stopped the service.
// Listeners run in registration order on the goroutine calling Stop. A
// panicking listener is logged and does not prevent the others from running.
func (s *Service) OnStopped(fn func()) (remove func()) {
	l := &listener{fn: fn}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(x *listener) bool { return x == l })
	}
}

func (s *Service) notifyStopped() {
	s.listenersMu.Lock()
	listeners := slices.Clone(s.listeners)
	s.listenersMu.Unlock()

	for i, l := range listeners {
		s.callListener(i, l.fn)
	}
}

func (s *Service) callListener(i int, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("stopped listener panicked", "listener", i, "panic", r)
		}
	}()
	fn()
}

// FoundPlugins returns every discovered plug-in in discovery order.
func (s *Service) FoundPlugins() []*Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.found)
}

// ProvidedPlugins returns the plug-ins whose dependencies are satisfied, in
// discovery order.
func (s *Service) ProvidedPlugins() []*Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.provided)
}

// ActivatedPlugins returns the activated plug-ins in activation order.
func (s *Service) ActivatedPlugins() []*Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.activated)
}

// Plugin returns the first found plug-in with the given symbolic name,
// ignoring case.
func (s *Service) Plugin(symbolicName string) (*Info, bool) {
	k := strings.ToLower(strings.TrimSpace(symbolicName))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.found {
		if p.Signature.Key() == k {
			return p, true
		}
	}
	return nil, false
}

func (s *Service) providedBundles() []*bundle.Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*bundle.Bundle, len(s.provided))
	for i, p := range s.provided {
		out[i] = p.Bundle
	}
	return out
}
