// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/motoi/motoi/pkg/bundle"
)

type (
	// Plugin describes a plug-in archive fixture.
	Plugin struct {
		// Archive is the file name without extension. Defaults to SymbolicName.
		Archive      string
		SymbolicName string
		Name         string
		Version      string
		Vendor       string
		Activator    string
		Dependencies []string
		// NoSignature omits signature.mf.
		NoSignature bool
		// Signature replaces the generated manifest verbatim.
		Signature string
		// Module is the primary module payload, written as <Archive>.mmod.
		Module string
		// Files holds extra entries by archive path.
		Files map[string]string
	}

	// CountingReader wraps a bundle.Reader and counts resource opens per
	// archive entry.
	CountingReader struct {
		bundle.Reader

		mu    sync.Mutex
		opens map[string]int
	}
)

// Manifest renders the signature.mf content for p.
func (p Plugin) Manifest() string {
	if p.Signature != "" {
		return p.Signature
	}
	var sb strings.Builder
	line := func(k, v string) {
		if v != "" {
			sb.WriteString(k + "=" + v + "\n")
		}
	}
	line("name", p.Name)
	line("symbolicName", p.SymbolicName)
	line("version", p.Version)
	line("vendor", p.Vendor)
	line("activator", p.Activator)
	if len(p.Dependencies) > 0 {
		sb.WriteString("dependencies=" + strings.Join(p.Dependencies, ",") + "\n")
	}
	return sb.String()
}

// ArchiveName returns the archive file name without extension.
func (p Plugin) ArchiveName() string {
	if p.Archive != "" {
		return p.Archive
	}
	return p.SymbolicName
}

// WriteArchive packs p into dir and returns the archive path.
func WriteArchive(t testing.TB, dir string, p Plugin) string {
	t.Helper()

	src := t.TempDir()
	if !p.NoSignature {
		MustWriteFile(t, filepath.Join(src, "signature.mf"), p.Manifest())
	}
	if p.Module != "" {
		MustWriteFile(t, filepath.Join(src, p.ArchiveName()+".mmod"), p.Module)
	}
	for name, content := range p.Files {
		MustWriteFile(t, filepath.Join(src, filepath.FromSlash(name)), content)
	}

	MustMkdirAll(t, dir)
	out := filepath.Join(dir, p.ArchiveName()+bundle.Extension)
	if err := bundle.Pack(src, out); err != nil {
		t.Fatalf("failed to pack %s: %v", out, err)
	}
	return out
}

// PluginsDir creates base/plug-ins holding an archive per plug-in, in order,
// and returns base.
func PluginsDir(t testing.TB, plugins ...Plugin) string {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, "plug-ins")
	MustMkdirAll(t, dir)
	for _, p := range plugins {
		WriteArchive(t, dir, p)
	}
	return base
}

// NewCountingReader wraps r.
func NewCountingReader(r bundle.Reader) *CountingReader {
	return &CountingReader{Reader: r, opens: make(map[string]int)}
}

// OpenResource implements bundle.Reader.
func (c *CountingReader) OpenResource(b *bundle.Bundle, name string) (io.ReadCloser, error) {
	c.mu.Lock()
	c.opens[b.Name()+"!"+name]++
	c.mu.Unlock()
	return c.Reader.OpenResource(b, name)
}

// Opens returns how often entry name of the archive named archive was opened.
func (c *CountingReader) Opens(archive, name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[archive+"!"+name]
}
