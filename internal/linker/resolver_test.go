// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/motoi/motoi/internal/testutil"
	"github.com/motoi/motoi/pkg/bundle"
)

type fixture struct {
	reader  *testutil.CountingReader
	bundles []*bundle.Bundle
}

func newFixture(t *testing.T, plugins ...testutil.Plugin) *fixture {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "plug-ins")
	f := &fixture{reader: testutil.NewCountingReader(bundle.NewZipReader())}
	for _, p := range plugins {
		path := testutil.WriteArchive(t, dir, p)
		b := bundle.New(path, f.reader)
		t.Cleanup(func() { _ = b.Close() })
		f.bundles = append(f.bundles, b)
	}
	return f
}

func (f *fixture) provided() []*bundle.Bundle { return f.bundles }

func (f *fixture) registerIncludes(t *testing.T, r *Resolver) {
	t.Helper()
	for _, b := range f.bundles {
		names, err := b.WithPrefix(IncludesPrefix)
		if err != nil {
			t.Fatal(err)
		}
		for _, n := range names {
			r.AddInclude(b, n)
		}
	}
}

func TestResolver_IncludeTable(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		testutil.Plugin{SymbolicName: "a", Files: map[string]string{"includes/lib/json.mmod": "json-from-a"}},
		testutil.Plugin{SymbolicName: "b", Files: map[string]string{"includes/json.mmod": "json-from-b"}},
	)
	r := NewResolver(f.provided)
	f.registerIncludes(t, r)

	incs := r.Includes()
	if len(incs) != 1 || incs[0].Bundle.Name() != "a" || incs[0].Path != "includes/lib/json.mmod" {
		t.Fatalf("Includes() = %+v, want first registration from a", incs)
	}

	m := r.Resolve("json, version=1")
	if m == nil {
		t.Fatal("Resolve(json) = nil")
	}
	if string(m.Data) != "json-from-a" {
		t.Errorf("Data = %q, want json-from-a", m.Data)
	}
	if want := f.bundles[0].Path() + "!includes/lib/json.mmod"; m.Origin != want {
		t.Errorf("Origin = %q, want %q", m.Origin, want)
	}
}

func TestResolver_PrimaryModule(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.Plugin{SymbolicName: "org.motoi.core", Module: "core-code"})
	r := NewResolver(f.provided)

	m := r.Resolve("Org.Motoi.Core.mmod")
	if m == nil || string(m.Data) != "core-code" {
		t.Fatalf("Resolve() = %+v, want primary module", m)
	}
}

func TestResolver_Memoized(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.Plugin{SymbolicName: "a", Files: map[string]string{"includes/util.mmod": "u"}})
	r := NewResolver(f.provided)
	f.registerIncludes(t, r)

	first := r.Resolve("util")
	second := r.Resolve("util.mmod")
	if first == nil || first != second {
		t.Fatalf("Resolve() returned %p then %p, want the same instance", first, second)
	}
	if n := f.reader.Opens("a", "includes/util.mmod"); n != 1 {
		t.Errorf("archive entry opened %d times, want 1", n)
	}
	if cached, ok := r.Cached("UTIL"); !ok || cached != first {
		t.Error("Cached() must return the loaded module")
	}
}

func TestResolver_Misses(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		testutil.Plugin{SymbolicName: "nomod"},
		testutil.Plugin{SymbolicName: "empty", Module: "x", Files: map[string]string{"includes/zero.mmod": ""}},
	)
	r := NewResolver(f.provided)
	f.registerIncludes(t, r)

	for _, name := range []string{"", "absent", "nomod", "zero"} {
		if m := r.Resolve(name); m != nil {
			t.Errorf("Resolve(%q) = %+v, want nil", name, m)
		}
	}
	if _, ok := r.Cached("zero"); ok {
		t.Error("failed loads must not be cached")
	}
}

func TestResolver_LoaderFailureNotCached(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.Plugin{SymbolicName: "a", Module: "code"})
	var fail atomic.Bool
	fail.Store(true)
	r := NewResolver(f.provided, WithLoader(LoaderFunc(func(name, origin string, payload []byte) (*Module, error) {
		if fail.Load() {
			return nil, errors.New("corrupt")
		}
		return PayloadLoader{}.Load(name, origin, payload)
	})))

	if r.Resolve("a") != nil {
		t.Fatal("Resolve() must return nil when loading fails")
	}
	fail.Store(false)
	if r.Resolve("a") == nil {
		t.Fatal("Resolve() must retry after a failed load")
	}
}

func TestResolver_ConcurrentSingleLoad(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.Plugin{SymbolicName: "a", Files: map[string]string{"includes/shared.mmod": "s"}})
	var loads atomic.Int32
	r := NewResolver(f.provided, WithLoader(LoaderFunc(func(name, origin string, payload []byte) (*Module, error) {
		loads.Add(1)
		return PayloadLoader{}.Load(name, origin, payload)
	})))
	f.registerIncludes(t, r)

	const workers = 32
	results := make([]*Module, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.Resolve("shared")
		}()
	}
	wg.Wait()

	if n := loads.Load(); n != 1 {
		t.Errorf("loader ran %d times, want 1", n)
	}
	for i, m := range results {
		if m == nil || m != results[0] {
			t.Fatalf("result %d = %p, want %p", i, m, results[0])
		}
	}
}

func TestResolver_ReentrantLoad(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.Plugin{
		SymbolicName: "a",
		Files: map[string]string{
			"includes/outer.mmod": "outer",
			"includes/inner.mmod": "inner",
		},
	})
	var r *Resolver
	r = NewResolver(f.provided, WithLoader(LoaderFunc(func(name, origin string, payload []byte) (*Module, error) {
		if name == "outer" && r.Resolve("inner") == nil {
			return nil, errors.New("inner missing")
		}
		return PayloadLoader{}.Load(name, origin, payload)
	})))
	f.registerIncludes(t, r)

	if r.Resolve("outer") == nil {
		t.Fatal("Resolve(outer) = nil")
	}
	if _, ok := r.Cached("inner"); !ok {
		t.Error("inner must be cached by the nested load")
	}
}

func TestResolver_Reset(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.Plugin{SymbolicName: "a", Files: map[string]string{"includes/x.mmod": "x"}})
	r := NewResolver(f.provided)
	f.registerIncludes(t, r)

	if r.Resolve("x") == nil {
		t.Fatal("Resolve(x) = nil")
	}
	r.Reset()
	if _, ok := r.Cached("x"); ok {
		t.Error("Reset must clear the cache")
	}
	if len(r.Includes()) != 0 {
		t.Error("Reset must clear the include table")
	}
	if r.Resolve("x") != nil {
		t.Error("include mappings must be gone after Reset")
	}
}
