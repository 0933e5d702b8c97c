// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/motoi/motoi/internal/issue"
	"github.com/motoi/motoi/internal/linker"
)

// newResolveCommand creates the `motoi resolve` command.
func newResolveCommand(app *App, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <module>",
		Short: "Load a module through the plug-in host",
		Long: `Resolve a module the way an activator would: first from the host's
static table, then from the includes and primary modules of the provided
plug-ins. Prints where the module came from and its digest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app, opts, func(s *session) error {
				return resolveModule(app.stdout, s.host, args[0])
			})
		},
	}
}

func resolveModule(w io.Writer, host *linker.Host, name string) error {
	m, err := host.LoadModule(name)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("resolve module").
			WithResource(name).
			WithIssue(issue.ModuleNotFoundId).
			Wrap(err).
			BuildError()
	}

	fmt.Fprintf(w, "%s: %s\n", NameStyle.Render("module"), m.Name)
	fmt.Fprintf(w, "%s: %s\n", NameStyle.Render("origin"), m.Origin)
	fmt.Fprintf(w, "%s: %s\n", NameStyle.Render("digest"), m.Digest)
	fmt.Fprintf(w, "%s: %d bytes\n", NameStyle.Render("size"), len(m.Data))
	return nil
}
