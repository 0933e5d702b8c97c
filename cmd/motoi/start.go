// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/motoi/motoi/internal/dag"
	"github.com/motoi/motoi/internal/issue"
	"github.com/motoi/motoi/internal/plugin"
)

type startOptions struct {
	order     string
	keepGoing bool
	skip      []string
}

// newStartCommand creates the `motoi start` command.
func newStartCommand(app *App, opts *globalOptions) *cobra.Command {
	so := &startOptions{}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Activate every provided plug-in",
		Long: `Discover plug-ins, resolve their dependencies and run the activator of
every provided plug-in.

By default plug-ins activate in dependency order and a failed activation
does not stop the others. Flags override the activation section of the
configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app, opts, func(s *session) error {
				activateOpts, err := so.resolve(cmd, s)
				if err != nil {
					return err
				}
				return runStart(cmd.Context(), app.stdout, app.stderr, s, activateOpts)
			})
		},
	}

	cmd.Flags().StringVar(&so.order, "order", "", "activation order: discovery or dependency")
	cmd.Flags().BoolVar(&so.keepGoing, "keep-going", true, "continue after a failed activation")
	cmd.Flags().StringSliceVar(&so.skip, "skip", nil, "symbolic names to leave unactivated")
	return cmd
}

// resolve merges the flags that were set over the configuration.
func (so *startOptions) resolve(cmd *cobra.Command, s *session) (plugin.ActivateOptions, error) {
	act := s.cfg.Activation
	orderName := string(act.Order)
	if cmd.Flags().Changed("order") {
		orderName = so.order
	}
	order, err := plugin.ParseOrder(orderName)
	if err != nil {
		return plugin.ActivateOptions{}, issue.NewErrorContext().
			WithOperation("parse activation order").
			WithResource(orderName).
			WithSuggestion("Use --order discovery or --order dependency").
			Wrap(err).
			BuildError()
	}

	keepGoing := act.KeepGoing
	if cmd.Flags().Changed("keep-going") {
		keepGoing = so.keepGoing
	}
	skip := act.Skip
	if cmd.Flags().Changed("skip") {
		skip = so.skip
	}
	return plugin.ActivateOptions{Order: order, KeepGoing: keepGoing, Skip: skip}, nil
}

func runStart(ctx context.Context, stdout, stderr io.Writer, s *session, opts plugin.ActivateOptions) error {
	scheme := string(s.cfg.UI.ColorScheme)

	if opts.Order == plugin.OrderDependency {
		var cycle *dag.CycleError
		if _, err := s.svc.ActivationOrder(); errors.As(err, &cycle) {
			reportError(stderr, issue.NewErrorContext().
				WithOperation("order plug-ins").
				WithIssue(issue.DependencyCycleId).
				WithSuggestion("Plug-ins are activated in discovery order instead").
				Wrap(err).
				Build(), s.verbose, scheme)
		}
	}

	activateErr := s.svc.ActivateProvided(ctx, opts)

	for _, p := range s.svc.FoundPlugins() {
		fmt.Fprintln(stdout, "  "+pluginLine(p))
	}
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "%d of %d provided plug-ins activated\n",
		len(s.svc.ActivatedPlugins()), len(s.svc.ProvidedPlugins()))

	if activateErr != nil {
		err := issue.NewErrorContext().
			WithOperation("activate plug-ins").
			WithIssue(issue.ActivationFailedId).
			WithSuggestion("Run with --verbose to see the activator log").
			Wrap(activateErr).
			Build()
		return fail(stderr, err, s.verbose, scheme)
	}
	return nil
}
