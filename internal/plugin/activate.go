// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"fmt"
	"slices"

	"github.com/motoi/motoi/pkg/activator"
)

const (
	// OrderDiscovery activates provided plug-ins in discovery order.
	OrderDiscovery Order = "discovery"
	// OrderDependency activates dependencies before their dependents.
	OrderDependency Order = "dependency"
)

type (
	// Order selects the sequence ActivateProvided uses.
	Order string

	// ActivateOptions configures ActivateProvided.
	ActivateOptions struct {
		Order Order
		// KeepGoing continues after a failed activation.
		KeepGoing bool
		// Skip lists symbolic names that are left in the Provided state.
		Skip []string
	}
)

// ActivatePlugin runs the activator of a provided plug-in and marks it
// Activated. It does nothing for a nil plug-in or one that is not in the
// Provided state. Failures return an *ActivationError and leave the plug-in
// Provided; they never affect other plug-ins.
func (s *Service) ActivatePlugin(ctx context.Context, p *Info) error {
	if p == nil || p.State() != StateProvided {
		return nil
	}

	s.mu.RLock()
	listed := slices.Contains(s.provided, p)
	s.mu.RUnlock()
	if !listed {
		return &ActivationError{Plugin: p.ID(), Err: ErrMissingDependencies}
	}

	typeName := activator.NormalizeType(p.Signature.Activator)
	if typeName != "" {
		if err := s.runActivator(ctx, p, typeName); err != nil {
			s.logger.Error("plug-in activation failed", "plugin", p.ID(), "activator", typeName, "error", err)
			return &ActivationError{Plugin: p.ID(), Activator: typeName, Err: err}
		}
	}

	if !p.advance(StateProvided, StateActivated) {
		return nil
	}
	s.mu.Lock()
	if s.started {
		s.activated = append(s.activated, p)
	}
	s.mu.Unlock()

	s.logger.Info("plug-in activated", "plugin", p.ID())
	return nil
}

// runActivator resolves, constructs and runs the activator. Panics are
// returned as errors wrapping ErrActivatorPanic.
func (s *Service) runActivator(ctx context.Context, p *Info, typeName string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActivatorPanic, r)
		}
	}()

	factory, err := s.host.ResolveType(p.Bundle.Name(), typeName)
	if err != nil {
		return err
	}
	a, err := factory()
	if err != nil {
		return fmt.Errorf("construct %s: %w", typeName, err)
	}
	if a == nil {
		return fmt.Errorf("construct %s: factory returned nil", typeName)
	}

	return a.Activate(&activator.Context{
		Context: ctx,
		Plugin: activator.Descriptor{
			Name:         p.Signature.Name,
			SymbolicName: p.Signature.SymbolicName,
			Version:      p.Signature.Version.String(),
			Vendor:       p.Signature.Vendor,
			Bundle:       p.Bundle.Name(),
		},
		Logger: s.logger.WithPrefix(p.ID()),
	})
}
