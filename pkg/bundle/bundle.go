// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Extension is the file extension of plug-in archives.
const Extension = ".marc"

// ErrResourceNotFound is returned when an archive has no entry with the
// requested name.
var ErrResourceNotFound = errors.New("resource not found")

type (
	// Reader is the archive access collaborator used by Bundle.
	Reader interface {
		// OpenResource opens the named entry. It returns an error wrapping
		// ErrResourceNotFound when the entry does not exist.
		OpenResource(b *Bundle, name string) (io.ReadCloser, error)
		// ListResources returns every file entry name in archive order.
		ListResources(b *Bundle) ([]string, error)
		// Close releases any handle held for the bundle.
		Close(b *Bundle) error
	}

	// Bundle is a handle to one plug-in archive on disk.
	Bundle struct {
		path   string
		name   string
		reader Reader

		listOnce  sync.Once
		resources []string
		listErr   error
	}

	// ResourceError reports a failed resource access.
	ResourceError struct {
		Archive  string
		Resource string
		Err      error
	}
)

// New returns a handle for the archive at path. No I/O happens until a
// resource is requested.
func New(path string, r Reader) *Bundle {
	return &Bundle{
		path:   path,
		name:   NameOf(path),
		reader: r,
	}
}

// NameOf returns the base file name of path without the archive extension.
func NameOf(path string) string {
	base := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(base), Extension) {
		return base[:len(base)-len(Extension)]
	}
	return base
}

// Path returns the archive path.
func (b *Bundle) Path() string { return b.path }

// Name returns the archive name without extension.
func (b *Bundle) Name() string { return b.name }

func (b *Bundle) String() string { return b.name }

// Open opens the named resource.
func (b *Bundle) Open(name string) (io.ReadCloser, error) {
	rc, err := b.reader.OpenResource(b, name)
	if err != nil {
		return nil, &ResourceError{Archive: b.path, Resource: name, Err: err}
	}
	return rc, nil
}

// ReadAll reads the named resource into memory. The stream is closed before
// ReadAll returns.
func (b *Bundle) ReadAll(name string) (data []byte, err error) {
	rc, err := b.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = &ResourceError{Archive: b.path, Resource: name, Err: closeErr}
		}
	}()

	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, &ResourceError{Archive: b.path, Resource: name, Err: err}
	}
	return data, nil
}

// Resources returns the resource names of the archive. The list is read on
// first use and cached for the lifetime of the handle.
func (b *Bundle) Resources() ([]string, error) {
	b.listOnce.Do(func() {
		b.resources, b.listErr = b.reader.ListResources(b)
		if b.listErr != nil {
			b.listErr = &ResourceError{Archive: b.path, Err: b.listErr}
		}
	})
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]string, len(b.resources))
	copy(out, b.resources)
	return out, nil
}

// Match returns the resource names matching pattern, in archive order.
func (b *Bundle) Match(pattern *regexp.Regexp) ([]string, error) {
	all, err := b.Resources()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range all {
		if pattern.MatchString(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// WithPrefix returns the resource names under prefix, in archive order.
func (b *Bundle) WithPrefix(prefix string) ([]string, error) {
	all, err := b.Resources()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range all {
		if strings.HasPrefix(name, prefix) && name != prefix {
			out = append(out, name)
		}
	}
	return out, nil
}

// Has reports whether the archive lists the named resource.
func (b *Bundle) Has(name string) bool {
	all, err := b.Resources()
	if err != nil {
		return false
	}
	for _, r := range all {
		if r == name {
			return true
		}
	}
	return false
}

// Close releases the reader's handle for this archive.
func (b *Bundle) Close() error {
	return b.reader.Close(b)
}

func (e *ResourceError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s: %v", e.Archive, e.Err)
	}
	return fmt.Sprintf("%s!%s: %v", e.Archive, e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// IsNotFound reports whether err means the resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResourceNotFound)
}
