// SPDX-License-Identifier: MPL-2.0

package extension

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"github.com/motoi/motoi/internal/plugin"
	"github.com/motoi/motoi/pkg/bundle"
)

// FileName is the descriptor entry read from every provided plug-in.
const FileName = "extensions.toml"

// ErrInvalidDescriptor is wrapped by every DescriptorError.
var ErrInvalidDescriptor = errors.New("invalid extensions descriptor")

type (
	// Point is a named slot other plug-ins contribute to.
	Point struct {
		ID          string
		Description string
		// Plugin is the symbolic name of the declaring plug-in.
		Plugin string
	}

	// Extension is one contribution to a point.
	Extension struct {
		Point       string
		ID          string
		Description string
		Properties  map[string]any
		// Plugin is the symbolic name of the contributing plug-in.
		Plugin string
	}

	// Registry holds the points and extensions of the last Collect. It is
	// safe for concurrent use.
	Registry struct {
		logger *log.Logger

		mu         sync.RWMutex
		points     map[string]*Point
		extensions []*Extension
	}

	// Option configures a Registry.
	Option func(*Registry)

	// DescriptorError reports an extensions.toml that could not be used.
	DescriptorError struct {
		Plugin string
		File   string
		// Line is 1-based; 0 when unknown.
		Line int
		Err  error
	}

	descriptor struct {
		Points     []pointDecl     `toml:"point"`
		Extensions []extensionDecl `toml:"extension"`
	}

	pointDecl struct {
		ID          string `toml:"id"`
		Description string `toml:"description"`
	}

	extensionDecl struct {
		Point       string         `toml:"point"`
		ID          string         `toml:"id"`
		Description string         `toml:"description"`
		Properties  map[string]any `toml:"properties"`
	}
)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{points: make(map[string]*Point)}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel, Prefix: "extension"})
	}
	return r
}

// Attach resets the registry whenever svc stops. The returned function
// detaches it.
func (r *Registry) Attach(svc *plugin.Service) (detach func()) {
	return svc.OnStopped(r.Reset)
}

// Collect replaces the registry content with the descriptors of plugins,
// read in order. Plug-ins without a descriptor are skipped. A plug-in whose
// descriptor cannot be read or is invalid contributes nothing; its error is
// logged and included in the joined result while the others are still
// collected.
func (r *Registry) Collect(plugins []*plugin.Info) error {
	points := make(map[string]*Point)
	var (
		extensions []*Extension
		errs       []error
	)
	for _, p := range plugins {
		desc, err := readDescriptor(p)
		if err != nil {
			if bundle.IsNotFound(err) {
				continue
			}
			r.logger.Error("skipping extensions of plug-in", "plugin", p.ID(), "error", err)
			errs = append(errs, err)
			continue
		}
		for _, decl := range desc.Points {
			if prev, dup := points[decl.ID]; dup {
				r.logger.Warn("duplicate extension point ignored", "point", decl.ID, "plugin", p.ID(), "declared_by", prev.Plugin)
				continue
			}
			points[decl.ID] = &Point{ID: decl.ID, Description: decl.Description, Plugin: p.ID()}
		}
		for _, decl := range desc.Extensions {
			extensions = append(extensions, &Extension{
				Point:       decl.Point,
				ID:          decl.ID,
				Description: decl.Description,
				Properties:  decl.Properties,
				Plugin:      p.ID(),
			})
		}
	}

	r.mu.Lock()
	r.points, r.extensions = points, extensions
	r.mu.Unlock()

	r.logger.Debug("extensions collected", "points", len(points), "extensions", len(extensions))
	return errors.Join(errs...)
}

// Reset drops everything collected.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = make(map[string]*Point)
	r.extensions = nil
}

// Points returns every declared point sorted by id.
func (r *Registry) Points() []*Point {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.SortedFunc(maps.Values(r.points), func(a, b *Point) int {
		return strings.Compare(a.ID, b.ID)
	})
}

// Point returns the point with the given id.
func (r *Registry) Point(id string) (*Point, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.points[id]
	return p, ok
}

// Extensions returns the contributions to pointID in collection order.
func (r *Registry) Extensions(pointID string) []*Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Extension
	for _, e := range r.extensions {
		if e.Point == pointID {
			out = append(out, e)
		}
	}
	return out
}

// Orphans returns the contributions whose point no collected plug-in
// declares.
func (r *Registry) Orphans() []*Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Extension
	for _, e := range r.extensions {
		if _, ok := r.points[e.Point]; !ok {
			out = append(out, e)
		}
	}
	return out
}

func readDescriptor(p *plugin.Info) (*descriptor, error) {
	data, err := p.Bundle.ReadAll(FileName)
	if err != nil {
		return nil, err
	}
	file := p.Bundle.Name() + bundle.Extension + "!" + FileName

	var desc descriptor
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&desc); err != nil {
		return nil, decodeError(p.ID(), file, err)
	}
	if err := desc.validate(); err != nil {
		return nil, &DescriptorError{Plugin: p.ID(), File: file, Err: err}
	}
	return &desc, nil
}

func decodeError(pluginID, file string, err error) *DescriptorError {
	de := &DescriptorError{Plugin: pluginID, File: file, Err: err}
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		de.Line, _ = decodeErr.Position()
	}
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) && len(strict.Errors) > 0 {
		de.Line, _ = strict.Errors[0].Position()
		de.Err = fmt.Errorf("unknown key %s", strings.Join(strict.Errors[0].Key(), "."))
	}
	return de
}

func (d *descriptor) validate() error {
	seen := make(map[string]bool, len(d.Points))
	for i, p := range d.Points {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("point #%d: missing id", i+1)
		}
		if seen[p.ID] {
			return fmt.Errorf("point %q declared twice", p.ID)
		}
		seen[p.ID] = true
	}
	for i, e := range d.Extensions {
		if strings.TrimSpace(e.Point) == "" {
			return fmt.Errorf("extension #%d: missing point", i+1)
		}
	}
	return nil
}

func (e *DescriptorError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Unwrap exposes ErrInvalidDescriptor and the cause.
func (e *DescriptorError) Unwrap() []error { return []error{ErrInvalidDescriptor, e.Err} }
