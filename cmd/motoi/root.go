// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/motoi/motoi/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the motoi command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "motoi",
		Short: "Plug-in bundle runtime",
		Long: TitleStyle.Render("motoi") + SubtitleStyle.Render(" - plug-in bundle runtime") + `

motoi discovers plug-in archives (*.marc) in the plug-ins directory of the
working directory, resolves their dependencies and activates them.

` + SubtitleStyle.Render("Examples:") + `
  motoi plugins             List discovered plug-ins and their state
  motoi start               Activate every provided plug-in
  motoi resolve core.mmod   Load a module through the plug-in host
  motoi extensions          List extension points and contributions
  motoi config show         Show current configuration`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.config/motoi/config.cue)")

	rootCmd.AddCommand(
		newPluginsCommand(app, opts),
		newStartCommand(app, opts),
		newResolveCommand(app, opts),
		newExtensionsCommand(app, opts),
		newConfigCommand(app, opts),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI with the process arguments and returns the exit code.
func Execute() int {
	app := NewApp(Dependencies{})
	err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	return exitCode(err)
}

// ExitError carries a process exit code out of a RunE handler. The error it
// wraps has already been reported to the user.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// reportError writes err to w. Known failures are followed by the rendered
// issue explaining them.
func reportError(w io.Writer, err error, verbose bool, colorScheme string) {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(verbose))
	} else {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+err.Error())
	}

	if is, ok := issue.IssueOf(err); ok {
		rendered, renderErr := is.Render(colorScheme)
		if renderErr != nil {
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// fail reports err and returns an ExitError so fang exits non-zero.
func fail(w io.Writer, err error, verbose bool, colorScheme string) error {
	reportError(w, err, verbose, colorScheme)
	return &ExitError{Code: 1, Err: err}
}
