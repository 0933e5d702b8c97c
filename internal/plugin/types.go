// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/motoi/motoi/pkg/bundle"
	"github.com/motoi/motoi/pkg/signature"
)

// PluginsDirName is the directory, relative to the base directory, scanned
// for plug-in archives.
const PluginsDirName = "plug-ins"

const (
	// StateFound marks a plug-in with a valid manifest.
	StateFound State = iota
	// StateProvided marks a plug-in whose dependencies are all present.
	StateProvided
	// StateActivated marks a plug-in whose activator completed.
	StateActivated
)

var (
	// ErrPluginsDirNotFound is returned by Start when the plug-ins directory is missing.
	ErrPluginsDirNotFound = errors.New("plug-ins directory not found")
	// ErrDependencyUnsatisfied marks a plug-in with a dependency no found plug-in provides.
	ErrDependencyUnsatisfied = errors.New("dependency not satisfied")
	// ErrActivation is the sentinel wrapped by every ActivationError.
	ErrActivation = errors.New("plug-in activation failed")
	// ErrMissingDependencies is returned when activating a plug-in that is
	// not in the provided list.
	ErrMissingDependencies = errors.New("missing dependencies")
	// ErrActivatorPanic wraps a recovered panic from activator code.
	ErrActivatorPanic = errors.New("activator panicked")
)

type (
	// State is the lifecycle state of a plug-in. It only moves forward.
	State int32

	// Info is one discovered plug-in.
	Info struct {
		Signature *signature.Signature
		Bundle    *bundle.Bundle

		state   atomic.Int32
		missing string
	}

	// DiscoveryError is returned when the plug-ins directory cannot be scanned.
	DiscoveryError struct {
		Dir string
		Err error
	}

	// DependencyError names the first dependency of a plug-in that no found
	// plug-in provides. It is logged, not returned.
	DependencyError struct {
		Plugin     string
		Dependency string
	}

	// ActivationError reports a failed activation of one plug-in.
	ActivationError struct {
		Plugin    string
		Activator string
		Err       error
	}
)

func (s State) String() string {
	switch s {
	case StateFound:
		return "found"
	case StateProvided:
		return "provided"
	case StateActivated:
		return "activated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

func newInfo(sig *signature.Signature, b *bundle.Bundle) *Info {
	return &Info{Signature: sig, Bundle: b}
}

// State returns the current lifecycle state.
func (p *Info) State() State { return State(p.state.Load()) }

func (p *Info) advance(from, to State) bool {
	return p.state.CompareAndSwap(int32(from), int32(to))
}

// ID returns the symbolic name, or the archive name when the manifest has none.
func (p *Info) ID() string {
	if p.Signature.SymbolicName != "" {
		return p.Signature.SymbolicName
	}
	return p.Bundle.Name()
}

// MissingDependency returns the first unmet dependency of a plug-in that
// stayed Found, or "".
func (p *Info) MissingDependency() string { return p.missing }

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover plug-ins in %s: %v", e.Dir, e.Err)
}

// Unwrap exposes ErrPluginsDirNotFound when the directory is missing.
func (e *DiscoveryError) Unwrap() error { return e.Err }

func (e *DependencyError) Error() string {
	return fmt.Sprintf("plug-in %s: dependency %q not found", e.Plugin, e.Dependency)
}

func (e *DependencyError) Unwrap() error { return ErrDependencyUnsatisfied }

func (e *ActivationError) Error() string {
	if e.Activator != "" {
		return fmt.Sprintf("activate %s (%s): %v", e.Plugin, e.Activator, e.Err)
	}
	return fmt.Sprintf("activate %s: %v", e.Plugin, e.Err)
}

// Unwrap exposes ErrActivation and the underlying cause.
func (e *ActivationError) Unwrap() []error { return []error{ErrActivation, e.Err} }
