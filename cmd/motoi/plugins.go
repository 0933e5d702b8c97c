// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/motoi/motoi/internal/issue"
	"github.com/motoi/motoi/internal/plugin"
	"github.com/motoi/motoi/internal/watch"
	"github.com/motoi/motoi/pkg/bundle"
)

// newPluginsCommand creates the `motoi plugins` command tree.
func newPluginsCommand(app *App, opts *globalOptions) *cobra.Command {
	pluginsCmd := &cobra.Command{
		Use:     "plugins",
		Aliases: []string{"list"},
		Short:   "List discovered plug-ins",
		Long: `List every plug-in archive found in the plug-ins directory with its
state. Plug-ins whose dependencies are not satisfied stay "found" and show
the first missing dependency.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app, opts, func(s *session) error {
				listPlugins(app.stdout, s.svc)
				return nil
			})
		},
	}

	var plain bool
	showCmd := &cobra.Command{
		Use:   "show <symbolic-name>",
		Short: "Describe one plug-in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app, opts, func(s *session) error {
				return showPlugin(app.stdout, s, args[0], plain)
			})
		},
	}
	showCmd.Flags().BoolVar(&plain, "plain", false, "render without colors")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Rescan the plug-ins directory when archives change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app, opts, func(s *session) error {
				return watchPlugins(cmd.Context(), app.stdout, s)
			})
		},
	}

	pluginsCmd.AddCommand(showCmd, watchCmd)
	return pluginsCmd
}

// withSession opens and starts a session, runs fn and reports its error.
func withSession(ctx context.Context, app *App, opts *globalOptions, fn func(s *session) error) error {
	s, err := app.open(ctx, opts)
	if err != nil {
		return fail(app.stderr, err, opts.verbose, "auto")
	}
	defer s.close()

	scheme := string(s.cfg.UI.ColorScheme)
	if err := s.start(ctx); err != nil {
		return fail(app.stderr, err, s.verbose, scheme)
	}
	if err := fn(s); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return fail(app.stderr, err, s.verbose, scheme)
	}
	return nil
}

func listPlugins(w io.Writer, svc *plugin.Service) {
	dir, _ := svc.PluginsDir()
	found := svc.FoundPlugins()

	fmt.Fprintln(w, TitleStyle.Render("Plug-ins")+" "+SubtitleStyle.Render(dir))
	fmt.Fprintln(w)
	if len(found) == 0 {
		fmt.Fprintln(w, "  "+SubtitleStyle.Render("(no plug-ins found)"))
	}
	for _, p := range found {
		fmt.Fprintln(w, "  "+pluginLine(p))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d found, %d provided, %d activated\n",
		len(found), len(svc.ProvidedPlugins()), len(svc.ActivatedPlugins()))
}

func pluginLine(p *plugin.Info) string {
	state := p.State().String()
	var sb strings.Builder
	sb.WriteString(stateStyle(state).Render(fmt.Sprintf("%-9s", state)))
	sb.WriteString("  ")
	sb.WriteString(NameStyle.Render(p.ID()))
	if v := p.Signature.Version.String(); v != "" {
		sb.WriteString(" " + v)
	}
	if p.Signature.Vendor != "" {
		sb.WriteString(" " + SubtitleStyle.Render("("+p.Signature.Vendor+")"))
	}
	if dep := p.MissingDependency(); dep != "" {
		sb.WriteString("  " + WarningStyle.Render(fmt.Sprintf("missing dependency %q", dep)))
	}
	return sb.String()
}

func showPlugin(w io.Writer, s *session, name string, plain bool) error {
	p, ok := s.svc.Plugin(name)
	if !ok {
		return issue.NewErrorContext().
			WithOperation("show plug-in").
			WithResource(name).
			WithSuggestion("Run 'motoi plugins' to list the discovered plug-ins").
			Wrap(fmt.Errorf("no plug-in with symbolic name %q", name)).
			BuildError()
	}

	style := string(s.cfg.UI.ColorScheme)
	if plain {
		style = "notty"
	}
	out, err := glamour.Render(pluginMarkdown(s, p), style)
	if err != nil {
		return fmt.Errorf("render plug-in summary: %w", err)
	}
	fmt.Fprint(w, out)
	return nil
}

// pluginMarkdown summarizes a plug-in as markdown.
func pluginMarkdown(s *session, p *plugin.Info) string {
	sig := p.Signature
	var md strings.Builder

	title := sig.Name
	if title == "" {
		title = p.ID()
	}
	fmt.Fprintf(&md, "# %s\n\n", title)

	version := sig.Version.String()
	if version != "" && !sig.Version.IsValid() {
		version += " (not a semantic version)"
	}
	md.WriteString("| Field | Value |\n|---|---|\n")
	row := func(k, v string) {
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(&md, "| %s | %s |\n", k, v)
	}
	row("Symbolic name", sig.SymbolicName)
	row("Version", version)
	row("Vendor", sig.Vendor)
	row("Archive", p.Bundle.Name()+bundle.Extension)
	row("State", p.State().String())
	row("Activator", sig.Activator)

	if deps := sig.Requires(); len(deps) > 0 {
		md.WriteString("\n## Dependencies\n\n")
		for _, dep := range deps {
			if _, ok := s.svc.Plugin(dep); ok {
				fmt.Fprintf(&md, "- `%s`\n", dep)
			} else {
				fmt.Fprintf(&md, "- `%s` (missing)\n", dep)
			}
		}
	}

	var includes []string
	for _, inc := range s.svc.Resolver().Includes() {
		if inc.Bundle == p.Bundle {
			includes = append(includes, fmt.Sprintf("- `%s` from `%s`\n", inc.File, inc.Path))
		}
	}
	if len(includes) > 0 {
		md.WriteString("\n## Includes\n\n")
		md.WriteString(strings.Join(includes, ""))
	}

	var points, contributions []string
	for _, pt := range s.ext.Points() {
		if pt.Plugin == sig.SymbolicName {
			points = append(points, fmt.Sprintf("- `%s` %s\n", pt.ID, pt.Description))
		}
		for _, e := range s.ext.Extensions(pt.ID) {
			if e.Plugin == sig.SymbolicName {
				contributions = append(contributions, fmt.Sprintf("- `%s` to `%s`\n", e.ID, e.Point))
			}
		}
	}
	if len(points) > 0 {
		md.WriteString("\n## Extension points\n\n")
		md.WriteString(strings.Join(points, ""))
	}
	if len(contributions) > 0 {
		md.WriteString("\n## Extensions\n\n")
		md.WriteString(strings.Join(contributions, ""))
	}
	return md.String()
}

// watchPlugins lists the plug-ins, then rescans and lists them again after
// every change until ctx is done.
func watchPlugins(ctx context.Context, w io.Writer, s *session) error {
	listPlugins(w, s.svc)

	dir, err := s.svc.PluginsDir()
	if err != nil {
		return err
	}
	watcher, err := watch.New(watch.Config{
		Dir:      dir,
		Debounce: s.cfg.Watch.Debounce,
		Logger:   s.logger.WithPrefix("watch"),
		OnChange: func(ctx context.Context, changed []string) error {
			s.logger.Info("rescanning plug-ins", "changed", strings.Join(changed, ", "))
			if err := s.restart(ctx); err != nil {
				return err
			}
			fmt.Fprintln(w)
			listPlugins(w, s.svc)
			return nil
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, SubtitleStyle.Render("Watching "+dir+" (Ctrl+C to stop)"))
	return watcher.Run(ctx)
}
