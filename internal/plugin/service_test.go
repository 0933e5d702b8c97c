// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/motoi/motoi/internal/linker"
	"github.com/motoi/motoi/internal/testutil"
	"github.com/motoi/motoi/pkg/activator"
	"github.com/motoi/motoi/pkg/bundle"
)

type harness struct {
	svc    *Service
	types  *activator.Registry
	reader *testutil.CountingReader
	logs   *bytes.Buffer
}

func newHarness(t *testing.T, base string) *harness {
	t.Helper()
	h := &harness{
		types:  activator.NewRegistry(),
		reader: testutil.NewCountingReader(bundle.NewZipReader()),
		logs:   &bytes.Buffer{},
	}
	h.svc = New(
		WithBaseDir(base),
		WithReader(h.reader),
		WithHost(linker.NewHost(h.types)),
		WithLogger(log.NewWithOptions(h.logs, log.Options{Level: log.DebugLevel})),
	)
	t.Cleanup(func() { _ = h.svc.Stop() })
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func ids(plugins []*Info) []string {
	out := make([]string, len(plugins))
	for i, p := range plugins {
		out[i] = p.ID()
	}
	return out
}

func abcPlugins() []testutil.Plugin {
	return []testutil.Plugin{
		{SymbolicName: "A"},
		{SymbolicName: "B", Dependencies: []string{"A"}},
		{SymbolicName: "C", Dependencies: []string{"Z"}},
	}
}

func TestStart_MissingPluginsDir(t *testing.T) {
	t.Parallel()

	h := newHarness(t, t.TempDir())
	err := h.svc.Start(context.Background())
	if !errors.Is(err, ErrPluginsDirNotFound) {
		t.Fatalf("Start() error = %v, want ErrPluginsDirNotFound", err)
	}
	var de *DiscoveryError
	if !errors.As(err, &de) || !strings.HasSuffix(de.Dir, PluginsDirName) {
		t.Errorf("error = %#v, want *DiscoveryError for the plug-ins dir", err)
	}
	if h.svc.Started() {
		t.Error("service must stay stopped")
	}
}

func TestStart_PluginsPathIsFile(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(base, PluginsDirName), "not a directory")
	h := newHarness(t, base)
	if err := h.svc.Start(context.Background()); !errors.Is(err, ErrPluginsDirNotFound) {
		t.Fatalf("Start() error = %v, want ErrPluginsDirNotFound", err)
	}
}

func TestStart_CanceledContext(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PluginsDir(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.svc.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Start() error = %v, want context.Canceled", err)
	}
}

func TestScenario_ABC(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PluginsDir(t, abcPlugins()...))
	h.start(t)

	if got := ids(h.svc.FoundPlugins()); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("FoundPlugins = %v, want [A B C]", got)
	}
	if got := ids(h.svc.ProvidedPlugins()); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("ProvidedPlugins = %v, want [A B]", got)
	}

	c, ok := h.svc.Plugin("c")
	if !ok {
		t.Fatal("Plugin(c) not found")
	}
	if c.State() != StateFound || c.MissingDependency() != "Z" {
		t.Errorf("C state=%s missing=%q", c.State(), c.MissingDependency())
	}
	if err := h.svc.ActivatePlugin(context.Background(), c); err != nil {
		t.Errorf("ActivatePlugin(C) error = %v, want no-op", err)
	}
	if c.State() != StateFound || len(h.svc.ActivatedPlugins()) != 0 {
		t.Error("activating a Found plug-in must not change anything")
	}
	if !strings.Contains(h.logs.String(), `dependency \"Z\" not found`) && !strings.Contains(h.logs.String(), `dependency "Z" not found`) {
		t.Errorf("missing dependency not logged:\n%s", h.logs)
	}
}

func TestStart_Idempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PluginsDir(t, abcPlugins()...))
	h.start(t)
	found := h.svc.FoundPlugins()
	provided := h.svc.ProvidedPlugins()

	h.start(t)
	if !slices.Equal(found, h.svc.FoundPlugins()) || !slices.Equal(provided, h.svc.ProvidedPlugins()) {
		t.Error("second Start changed the catalog")
	}
	if mods, types := h.svc.Host().Hooks(); mods != 1 || types != 0 {
		t.Errorf("Hooks() = %d, %d; want 1, 0", mods, types)
	}
}

func TestStop_Idempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PluginsDir(t, abcPlugins()...))
	if err := h.svc.Stop(); err != nil {
		t.Fatalf("Stop() before Start error = %v", err)
	}
	h.start(t)

	var stopped int
	h.svc.OnStopped(func() { stopped++ })

	for range 2 {
		if err := h.svc.Stop(); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	}
	if stopped != 1 {
		t.Errorf("listener fired %d times, want 1", stopped)
	}
	if len(h.svc.FoundPlugins())+len(h.svc.ProvidedPlugins())+len(h.svc.ActivatedPlugins()) != 0 {
		t.Error("Stop must clear all collections")
	}
	if mods, types := h.svc.Host().Hooks(); mods != 0 || types != 0 {
		t.Errorf("Hooks() = %d, %d after Stop; want 0, 0", mods, types)
	}

	// A stopped service can be started again.
	h.start(t)
	if got := ids(h.svc.ProvidedPlugins()); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("ProvidedPlugins after restart = %v", got)
	}
}

func TestStop_ListenerPanicIsolated(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PluginsDir(t, testutil.Plugin{SymbolicName: "A"}))
	h.start(t)

	var calls []string
	h.svc.OnStopped(func() { calls = append(calls, "first") })
	h.svc.OnStopped(func() { panic("listener exploded") })
	remove := h.svc.OnStopped(func() { calls = append(calls, "removed") })
	h.svc.OnStopped(func() { calls = append(calls, "last") })
	remove()

	if err := h.svc.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !slices.Equal(calls, []string{"first", "last"}) {
		t.Errorf("listeners ran %v, want [first last]", calls)
	}
	if !strings.Contains(h.logs.String(), "listener exploded") {
		t.Errorf("panic not logged:\n%s", h.logs)
	}
}

func TestDiscovery_SkipsNonPlugins(t *testing.T) {
	t.Parallel()

	base := testutil.PluginsDir(t,
		testutil.Plugin{Archive: "01-nosig", NoSignature: true, Files: map[string]string{"readme.txt": "hi"}},
		testutil.Plugin{Archive: "02-bad", Signature: "this is not a manifest\n"},
		testutil.Plugin{Archive: "03-good", SymbolicName: "good"},
	)
	dir := filepath.Join(base, PluginsDirName)
	testutil.MustWriteFile(t, filepath.Join(dir, "04-corrupt.marc"), "not a zip")
	testutil.MustWriteFile(t, filepath.Join(dir, "05-other.zip"), "ignored")
	testutil.MustMkdirAll(t, filepath.Join(dir, "06-dir.marc"))

	h := newHarness(t, base)
	h.start(t)

	if got := ids(h.svc.FoundPlugins()); !slices.Equal(got, []string{"good"}) {
		t.Errorf("FoundPlugins = %v, want [good]", got)
	}
	logs := h.logs.String()
	for _, want := range []string{"01-nosig.marc", "02-bad.marc", "04-corrupt.marc"} {
		if !strings.Contains(logs, want) {
			t.Errorf("skip of %s not logged:\n%s", want, logs)
		}
	}
	if strings.Contains(logs, "05-other") {
		t.Error("non-archive files must be ignored silently")
	}
}

func TestResolve_PreservesDiscoveryOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PluginsDir(t,
		testutil.Plugin{Archive: "a", SymbolicName: "org.motoi.ui", Dependencies: []string{"ORG.MOTOI.CORE"}},
		testutil.Plugin{Archive: "b", SymbolicName: "org.motoi.log", Dependencies: []string{"org.motoi.core", " ", ""}},
		testutil.Plugin{Archive: "c", SymbolicName: "org.motoi.core", Dependencies: []string{"org.motoi.core"}},
	))
	h.start(t)

	want := []string{"org.motoi.ui", "org.motoi.log", "org.motoi.core"}
	if got := ids(h.svc.ProvidedPlugins()); !slices.Equal(got, want) {
		t.Errorf("ProvidedPlugins = %v, want %v", got, want)
	}

	order, err := h.svc.ActivationOrder()
	if err != nil {
		t.Fatalf("ActivationOrder() error = %v", err)
	}
	if got := ids(order); !slices.Equal(got, []string{"org.motoi.core", "org.motoi.ui", "org.motoi.log"}) {
		t.Errorf("ActivationOrder = %v", got)
	}
}

func TestResolve_DirectPresenceOnly(t *testing.T) {
	t.Parallel()

	// B depends on A, which is found but not provided. B is still provided.
	h := newHarness(t, testutil.PluginsDir(t,
		testutil.Plugin{SymbolicName: "A", Dependencies: []string{"missing"}},
		testutil.Plugin{SymbolicName: "B", Dependencies: []string{"a"}},
	))
	h.start(t)

	if got := ids(h.svc.ProvidedPlugins()); !slices.Equal(got, []string{"B"}) {
		t.Errorf("ProvidedPlugins = %v, want [B]", got)
	}
}

func TestResolve_CycleIsProvidedAndReported(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PluginsDir(t,
		testutil.Plugin{SymbolicName: "a", Dependencies: []string{"b"}},
		testutil.Plugin{SymbolicName: "b", Dependencies: []string{"a"}},
	))
	h.start(t)

	if got := ids(h.svc.ProvidedPlugins()); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("ProvidedPlugins = %v, want [a b]", got)
	}
	if !strings.Contains(h.logs.String(), "dependency cycle") {
		t.Errorf("cycle not logged:\n%s", h.logs)
	}
	if _, err := h.svc.ActivationOrder(); err == nil {
		t.Error("ActivationOrder() must report the cycle")
	}
}

func TestIncludes_ResolvedThroughHost(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testutil.PluginsDir(t,
		testutil.Plugin{SymbolicName: "a", Files: map[string]string{"includes/json.mmod": "json"}},
		testutil.Plugin{SymbolicName: "b", Dependencies: []string{"missing"}, Files: map[string]string{"includes/yaml.mmod": "yaml"}},
	))
	h.start(t)
	host := h.svc.Host()

	first, err := host.LoadModule("json.mmod")
	if err != nil {
		t.Fatalf("LoadModule(json) error = %v", err)
	}
	second, err := host.LoadModule("JSON, version=1")
	if err != nil || second != first {
		t.Fatalf("second LoadModule = %p, %v; want cached %p", second, err, first)
	}
	if n := h.reader.Opens("a", "includes/json.mmod"); n != 1 {
		t.Errorf("json.mmod opened %d times, want 1", n)
	}

	// Includes come from every found plug-in, provided or not.
	if _, err := host.LoadModule("yaml"); err != nil {
		t.Errorf("LoadModule(yaml) error = %v", err)
	}

	if err := h.svc.Stop(); err != nil {
		t.Fatal(err)
	}
	if _, err := host.LoadModule("json"); !errors.Is(err, linker.ErrModuleNotFound) {
		t.Errorf("LoadModule after Stop error = %v, want ErrModuleNotFound", err)
	}
}

func TestStart_DefaultsToWorkingDirectory(t *testing.T) {
	base := testutil.PluginsDir(t, testutil.Plugin{SymbolicName: "cwd"})
	testutil.MustChdir(t, base)

	svc := New(WithLogger(log.New(io.Discard)), WithHost(linker.NewHost(activator.NewRegistry())))
	t.Cleanup(func() { _ = svc.Stop() })
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := ids(svc.FoundPlugins()); !slices.Equal(got, []string{"cwd"}) {
		t.Errorf("FoundPlugins = %v", got)
	}
}
