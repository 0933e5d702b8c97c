// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/motoi/motoi/internal/config"
	"github.com/motoi/motoi/internal/extension"
	"github.com/motoi/motoi/internal/issue"
	"github.com/motoi/motoi/internal/linker"
	"github.com/motoi/motoi/internal/plugin"
	"github.com/motoi/motoi/pkg/activator"
)

type (
	// App wires CLI services and shared dependencies. Command handlers
	// receive an App and open a session from it.
	App struct {
		Config  config.Provider
		Types   *activator.Registry
		BaseDir string
		stdout  io.Writer
		stderr  io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		// Types holds the activator factories compiled into the binary.
		Types *activator.Registry
		// BaseDir is the directory holding plug-ins/. Empty means the
		// working directory.
		BaseDir string
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// globalOptions carries the persistent root flags.
	globalOptions struct {
		verbose    bool
		configPath string
	}

	// session is the state of one command invocation.
	session struct {
		cfg     *config.Config
		verbose bool
		logger  *log.Logger
		host    *linker.Host
		svc     *plugin.Service
		ext     *extension.Registry
		cleanup []func()
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Types == nil {
		deps.Types = activator.Default
	}
	registerBuiltins(deps.Types)

	return &App{
		Config:  deps.Config,
		Types:   deps.Types,
		BaseDir: deps.BaseDir,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
}

// loadConfig loads configuration for the --config flag value.
func (a *App) loadConfig(ctx context.Context, opts *globalOptions) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: opts.configPath})
	if err != nil {
		var ae *issue.ActionableError
		if errors.As(err, &ae) {
			if ae.Issue == 0 {
				ae.Issue = issue.ConfigLoadFailedId
			}
			return nil, err
		}
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.configPath).
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return cfg, nil
}

// open builds a stopped session. The caller must call close.
func (a *App) open(ctx context.Context, opts *globalOptions) (*session, error) {
	cfg, err := a.loadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	verbose := opts.verbose || cfg.UI.Verbose
	logger := cfg.Log.NewLogger(a.stderr, verbose)

	host := linker.NewHost(a.Types)
	s := &session{
		cfg:     cfg,
		verbose: verbose,
		logger:  logger,
		host:    host,
		svc: plugin.New(
			plugin.WithBaseDir(a.BaseDir),
			plugin.WithHost(host),
			plugin.WithLogger(logger.WithPrefix("plugin")),
		),
		ext: extension.New(extension.WithLogger(logger.WithPrefix("extension"))),
	}
	s.cleanup = append(s.cleanup,
		host.AddTypeResolver(builtinTypes(a.Types)),
		s.ext.Attach(s.svc),
	)
	return s, nil
}

// start starts the plug-in service and collects extension descriptors.
// Descriptor errors do not fail the start.
func (s *session) start(ctx context.Context) error {
	if err := s.svc.Start(ctx); err != nil {
		return startError(err)
	}
	if err := s.ext.Collect(s.svc.ProvidedPlugins()); err != nil {
		s.logger.Debug("extension descriptors skipped", "count", countErrors(err), "error", err)
	}
	return nil
}

// countErrors reports how many errors a joined error holds.
func countErrors(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}

// restart rescans the plug-ins directory.
func (s *session) restart(ctx context.Context) error {
	if err := s.svc.Stop(); err != nil {
		s.logger.Warn("closing archives", "error", err)
	}
	return s.start(ctx)
}

func (s *session) close() {
	if err := s.svc.Stop(); err != nil {
		s.logger.Warn("closing archives", "error", err)
	}
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func startError(err error) error {
	ctx := issue.NewErrorContext().WithOperation("discover plug-ins")
	var de *plugin.DiscoveryError
	if errors.As(err, &de) {
		ctx = ctx.WithResource(de.Dir)
	}
	if errors.Is(err, plugin.ErrPluginsDirNotFound) {
		ctx = ctx.
			WithIssue(issue.PluginsDirNotFoundId).
			WithSuggestion("Create a '" + plugin.PluginsDirName + "' directory in the working directory").
			WithSuggestion("Run motoi from the directory that contains '" + plugin.PluginsDirName + "'")
	}
	return ctx.Wrap(err).BuildError()
}
