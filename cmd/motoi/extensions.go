// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/motoi/motoi/internal/extension"
)

// newExtensionsCommand creates the `motoi extensions` command.
func newExtensionsCommand(app *App, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extensions",
		Short: "List extension points and contributions",
		Long: `List the extension points declared by provided plug-ins in their
` + extension.FileName + ` descriptors, with the extensions contributed to each.
Extensions naming an undeclared point are listed as orphans.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), app, opts, func(s *session) error {
				listExtensions(app.stdout, s.ext)
				return nil
			})
		},
	}
}

func listExtensions(w io.Writer, reg *extension.Registry) {
	points := reg.Points()
	fmt.Fprintln(w, TitleStyle.Render("Extension points"))
	fmt.Fprintln(w)
	if len(points) == 0 {
		fmt.Fprintln(w, "  "+SubtitleStyle.Render("(none declared)"))
	}
	for _, pt := range points {
		line := "  " + NameStyle.Render(pt.ID) + " " + SubtitleStyle.Render("("+pt.Plugin+")")
		if pt.Description != "" {
			line += " " + pt.Description
		}
		fmt.Fprintln(w, line)
		for _, e := range reg.Extensions(pt.ID) {
			fmt.Fprintln(w, "    - "+extensionLine(e))
		}
	}

	if orphans := reg.Orphans(); len(orphans) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, WarningStyle.Render("Orphaned extensions"))
		for _, e := range orphans {
			fmt.Fprintln(w, "    - "+extensionLine(e)+" -> "+e.Point)
		}
	}
}

func extensionLine(e *extension.Extension) string {
	line := e.ID
	if line == "" {
		line = SubtitleStyle.Render("(anonymous)")
	}
	line += " " + SubtitleStyle.Render("("+e.Plugin+")")
	if len(e.Properties) > 0 {
		keys := make([]string, 0, len(e.Properties))
		for k := range e.Properties {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = fmt.Sprintf("%s=%v", k, e.Properties[k])
		}
		line += " " + strings.Join(pairs, " ")
	}
	return line
}
