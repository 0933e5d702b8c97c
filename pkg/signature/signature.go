// SPDX-License-Identifier: MPL-2.0

package signature

import (
	"errors"
	"fmt"
	"strings"
)

// FileName is the manifest resource name at the archive root.
const FileName = "signature.mf"

// ErrInvalid is the sentinel wrapped by ParseError.
var ErrInvalid = errors.New("invalid signature")

type (
	// Signature is the parsed content of a signature.mf manifest.
	Signature struct {
		Name         string
		SymbolicName string
		Version      Version
		Vendor       string
		// Activator is the activator type name relative to the plug-in's
		// bundle, for example "core/Activator". Empty means the plug-in
		// activates without running code.
		Activator string
		// Dependencies holds every declared entry in order, blanks included.
		Dependencies []string
		// Attributes holds unrecognized keys, lower-cased.
		Attributes map[string]string
	}

	// ParseError reports a malformed manifest.
	ParseError struct {
		File string
		// Line is 1-based; zero when the error is not tied to a line.
		Line int
		Err  error
	}
)

// Key returns the lower-cased symbolic name used for all comparisons.
func (s *Signature) Key() string {
	return strings.ToLower(strings.TrimSpace(s.SymbolicName))
}

// Requires returns the declared dependencies without blank entries.
func (s *Signature) Requires() []string {
	out := make([]string, 0, len(s.Dependencies))
	for _, dep := range s.Dependencies {
		if dep = strings.TrimSpace(dep); dep != "" {
			out = append(out, dep)
		}
	}
	return out
}

// DependsOn reports whether the signature declares a dependency on
// symbolicName, ignoring case.
func (s *Signature) DependsOn(symbolicName string) bool {
	for _, dep := range s.Requires() {
		if strings.EqualFold(dep, symbolicName) {
			return true
		}
	}
	return false
}

// String returns "symbolicName@version", or the display name when the
// symbolic name is missing.
func (s *Signature) String() string {
	id := s.SymbolicName
	if id == "" {
		id = s.Name
	}
	if s.Version == "" {
		return id
	}
	return id + "@" + s.Version.String()
}

func (e *ParseError) Error() string {
	if msg := e.Err.Error(); e.Line == 0 && strings.HasPrefix(msg, e.File+":") {
		return msg
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Unwrap exposes both ErrInvalid and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrInvalid, e.Err}
}
