// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "discover plug-ins"},
			want: "failed to discover plug-ins",
		},
		{
			name: "with resource",
			err:  &ActionableError{Operation: "discover plug-ins", Resource: "./plug-ins"},
			want: "failed to discover plug-ins: ./plug-ins",
		},
		{
			name: "with cause",
			err:  &ActionableError{Operation: "resolve module", Cause: errors.New(`module "json" not found`)},
			want: `failed to resolve module: module "json" not found`,
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "load configuration",
				Resource:  "config.cue",
				Cause:     errors.New("line 3: unexpected token"),
			},
			want: "failed to load configuration: config.cue: line 3: unexpected token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("plug-ins directory not found")
	err := NewErrorContext().
		WithOperation("discover plug-ins").
		Wrap(fmt.Errorf("scan: %w", sentinel)).
		BuildError()

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is must reach the wrapped sentinel")
	}
	var ae *ActionableError
	if !errors.As(err, &ae) || ae.Operation != "discover plug-ins" {
		t.Errorf("errors.As = %+v", ae)
	}
	if (&ActionableError{Operation: "x"}).Unwrap() != nil {
		t.Error("Unwrap() without cause must be nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	root := errors.New("permission denied")
	err := &ActionableError{
		Operation:   "open archive",
		Resource:    "plug-ins/ui.marc",
		Suggestions: []string{"Check file permissions", "Run 'motoi plugins -v'"},
		Cause:       fmt.Errorf("read central directory: %w", root),
	}

	plain := err.Format(false)
	for _, want := range []string{"failed to open archive", "plug-ins/ui.marc", "• Check file permissions", "• Run 'motoi plugins -v'"} {
		if !strings.Contains(plain, want) {
			t.Errorf("Format(false) missing %q:\n%s", want, plain)
		}
	}
	if strings.Contains(plain, "Error chain") {
		t.Error("Format(false) must not print the error chain")
	}

	verbose := err.Format(true)
	for _, want := range []string{"Error chain:", "1. read central directory: permission denied", "2. permission denied"} {
		if !strings.Contains(verbose, want) {
			t.Errorf("Format(true) missing %q:\n%s", want, verbose)
		}
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("plug-ins").Build() != nil {
		t.Error("Build() without operation must return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation must return a nil error")
	}

	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("activate plug-in").
		WithResource("org.example.tools").
		WithSuggestion("Run with --verbose").
		WithSuggestion("Skip the plug-in").
		WithSuggestion("Check the activator").
		WithIssue(ActivationFailedId).
		Wrap(cause).
		Build()

	if ae.Operation != "activate plug-in" || ae.Resource != "org.example.tools" || ae.Cause != cause {
		t.Errorf("Build() = %+v", ae)
	}
	if len(ae.Suggestions) != 3 || !ae.HasSuggestions() {
		t.Errorf("Suggestions = %v", ae.Suggestions)
	}
	if ae.Issue != ActivationFailedId {
		t.Errorf("Issue = %d, want %d", ae.Issue, ActivationFailedId)
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	if Wrap(nil, "x", "y") != nil {
		t.Error("Wrap(nil) must return nil")
	}

	cause := errors.New("cause")
	if got := Wrap(cause, "start plug-ins", "").Error(); got != "failed to start plug-ins: cause" {
		t.Errorf("Wrap() = %q", got)
	}
	if got := Wrap(cause, "read manifest", "ui.marc").Error(); got != "failed to read manifest: ui.marc: cause" {
		t.Errorf("Wrap() = %q", got)
	}
}

func TestFormat_NestedSuggestions(t *testing.T) {
	t.Parallel()

	inner := NewErrorContext().
		WithOperation("load configuration").
		WithSuggestion("Check CUE syntax").
		WithSuggestion("Run 'motoi config dump'").
		Wrap(errors.New("bad token")).
		Build()
	outer := &ActionableError{
		Operation:   "start",
		Suggestions: []string{"Check CUE syntax", "Run with --verbose"},
		Cause:       fmt.Errorf("cli: %w", inner),
	}

	if !outer.HasSuggestions() || !(&ActionableError{Operation: "x", Cause: inner}).HasSuggestions() {
		t.Error("HasSuggestions() must see nested suggestions")
	}
	if (&ActionableError{Operation: "x"}).HasSuggestions() {
		t.Error("HasSuggestions() without suggestions must be false")
	}

	got := outer.Format(false)
	if n := strings.Count(got, "Check CUE syntax"); n != 1 {
		t.Errorf("duplicate suggestion printed %d times:\n%s", n, got)
	}
	for _, want := range []string{"• Run with --verbose", "• Run 'motoi config dump'"} {
		if !strings.Contains(got, want) {
			t.Errorf("Format(false) missing %q:\n%s", want, got)
		}
	}
}

func TestBuild_DoesNotShareSuggestions(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().WithOperation("x").WithSuggestion("a")
	first := ctx.Build()
	ctx.WithSuggestion("b")
	if len(first.Suggestions) != 1 {
		t.Errorf("earlier Build() saw later suggestion: %v", first.Suggestions)
	}
}

func TestIssueOf(t *testing.T) {
	t.Parallel()

	inner := NewErrorContext().WithOperation("resolve module").WithIssue(ModuleNotFoundId).Wrap(errors.New("miss")).BuildError()

	tests := []struct {
		name string
		err  error
		want Id
	}{
		{name: "nil", err: nil},
		{name: "plain error", err: errors.New("x")},
		{name: "no issue", err: NewErrorContext().WithOperation("x").BuildError()},
		{name: "direct", err: NewErrorContext().WithOperation("x").WithIssue(ConfigLoadFailedId).BuildError(), want: ConfigLoadFailedId},
		{name: "wrapped", err: fmt.Errorf("cli: %w", inner), want: ModuleNotFoundId},
		{name: "nested without issue outside", err: NewErrorContext().WithOperation("outer").Wrap(inner).BuildError(), want: ModuleNotFoundId},
		{name: "unknown id", err: NewErrorContext().WithOperation("x").WithIssue(Id(999)).BuildError()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := IssueOf(tt.err)
			if tt.want == 0 {
				if ok {
					t.Errorf("IssueOf() = %d, want none", got.Id())
				}
				return
			}
			if !ok || got.Id() != tt.want {
				t.Errorf("IssueOf() = %v, %v; want %d", got, ok, tt.want)
			}
		})
	}
}
