// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/motoi/motoi/internal/config"
	"github.com/motoi/motoi/internal/issue"
)

// newConfigCommand creates the `motoi config` command tree.
func newConfigCommand(app *App, opts *globalOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage motoi configuration",
		Long: `Manage motoi configuration.

Configuration is stored in:
  - Linux: ~/.config/motoi/config.cue
  - macOS: ~/Library/Application Support/motoi/config.cue
  - Windows: %APPDATA%\motoi\config.cue

A config.cue in the working directory is used when the user file is absent.
Every value can be overridden with ` + config.EnvPrefix + `_<SECTION>_<KEY> variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), opts)
			if err != nil {
				return fail(app.stderr, err, opts.verbose, "auto")
			}
			path, _ := config.Locate(config.LoadOptions{ConfigFilePath: opts.configPath})
			showConfig(app.stdout, cfg, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.CreateDefaultConfig("")
			if err != nil {
				return fail(app.stderr, issue.Wrap(err, "create configuration", ""), opts.verbose, "auto")
			}
			if created {
				fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			} else {
				fmt.Fprintf(app.stdout, "Configuration already exists at %s\n", path)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return fail(app.stderr, err, opts.verbose, "auto")
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), opts)
			if err != nil {
				return fail(app.stderr, err, opts.verbose, "auto")
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	keyStyle := NameStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	section := func(name string, kv ...string) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s:\n", keyStyle.Render(name))
		for i := 0; i+1 < len(kv); i += 2 {
			fmt.Fprintf(w, "  %s: %s\n", kv[i], valueStyle.Render(kv[i+1]))
		}
	}

	skip := "(none)"
	if len(cfg.Activation.Skip) > 0 {
		skip = strings.Join(cfg.Activation.Skip, ", ")
	}
	section("log",
		"level", cfg.Log.Level.String(),
		"format", cfg.Log.Format.String(),
		"timestamps", fmt.Sprint(cfg.Log.Timestamps))
	section("activation",
		"order", cfg.Activation.Order.String(),
		"keep_going", fmt.Sprint(cfg.Activation.KeepGoing),
		"skip", skip)
	section("watch",
		"debounce", cfg.Watch.Debounce.String())
	section("ui",
		"verbose", fmt.Sprint(cfg.UI.Verbose),
		"color_scheme", cfg.UI.ColorScheme.String())
}
