// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type (
	// ActionableError is a user-facing error: the operation that failed, the
	// resource involved, hints for fixing it and, optionally, the catalog
	// issue that explains it. Build one with ErrorContext:
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("discover plug-ins").
	//		WithResource("./plug-ins").
	//		WithIssue(issue.PluginsDirNotFoundId).
	//		Wrap(originalErr).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "activate plug-ins".
		Operation string
		// Resource names the file, directory or plug-in involved.
		Resource    string
		Suggestions []string
		Cause       error
		// Issue is the catalog entry the CLI renders after the message.
		Issue Id
	}

	// ErrorContext accumulates the parts of an ActionableError.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext starts an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Wrap returns err annotated with an operation and an optional resource, or
// nil when err is nil.
func Wrap(err error, operation, resource string) error {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Resource: resource, Cause: err}
}

// Error returns "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the cause.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// HasSuggestions reports whether e or an ActionableError it wraps carries
// suggestions.
func (e *ActionableError) HasSuggestions() bool {
	return len(e.allSuggestions()) > 0
}

// Format renders the message followed by the suggestions of e and of every
// ActionableError in its chain, without duplicates. Verbose output adds the
// numbered chain of causes:
//
//	failed to <operation>: <resource>: <cause>
//
//	  • <suggestion>
//
//	Error chain:
//	  1. <cause>
//	  2. <cause of cause>
func (e *ActionableError) Format(verbose bool) string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if sugs := e.allSuggestions(); len(sugs) > 0 {
		sb.WriteString("\n")
		for _, s := range sugs {
			sb.WriteString("\n  • " + s)
		}
	}

	if verbose && e.Cause != nil {
		sb.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&sb, "\n  %d. %s", depth, err.Error())
			depth++
		}
	}
	return sb.String()
}

func (e *ActionableError) allSuggestions() []string {
	var out []string
	for cur := e; cur != nil; {
		for _, s := range cur.Suggestions {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
		var next *ActionableError
		if !errors.As(cur.Cause, &next) {
			break
		}
		cur = next
	}
	return out
}

// WithOperation sets the failed operation. It is required.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

// WithResource sets the resource involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion appends a hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sug)
	return c
}

// WithIssue links the error to a catalog issue.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

// Wrap sets the cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns the ActionableError, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	ae.Suggestions = slices.Clone(c.err.Suggestions)
	return &ae
}

// BuildError is Build returning an error interface, nil when Build is nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}

// IssueOf returns the catalog issue linked to the outermost ActionableError
// in err's chain that has one.
func IssueOf(err error) (*Issue, bool) {
	for err != nil {
		var ae *ActionableError
		if !errors.As(err, &ae) {
			return nil, false
		}
		if ae.Issue != 0 {
			if i := Get(ae.Issue); i != nil {
				return i, true
			}
		}
		err = ae.Cause
	}
	return nil, false
}
